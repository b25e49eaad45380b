package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/amqp"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/config"
	applog "github.com/Alexis-Gontier/my-weekly-allowance/internal/log"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/statement"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentStatement)
	applog.SetDefault(logger)

	logger.Info("Starting statement-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Statement sink: Google Sheets when configured, otherwise in-memory so
	// the queue still drains in development.
	var appender statement.RowAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := statement.NewGoogleClientFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		appender = statement.NewMemoryAppender()
		logger.Info("Google Sheets disabled - statement rows kept in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	worker := statement.NewWorker(appender)

	go func() {
		handler := func(msg *amqp.TransactionMessage) error {
			return worker.HandleTransactionMessage(ctx, msg)
		}
		if err := amqpClient.ConsumeTransactions(ctx, handler); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down statement-worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Statement-worker shutdown complete")
	}
}
