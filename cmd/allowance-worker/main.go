package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/amqp"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/backend"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/config"
	applog "github.com/Alexis-Gontier/my-weekly-allowance/internal/log"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting allowance-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, cleanup, err := backend.Open(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to open data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	// Allowance payments publish transaction messages like any other
	// mutation, so the statement worker picks them up too.
	var events services.TransactionPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without statement export", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
			logger.Info("AMQP client initialized")
		}
	}

	walletSvc := services.NewWalletService(store, events)
	allowanceSvc := services.NewAllowanceService(store, walletSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Allowance processor configured",
		"interval", cfg.AllowanceInterval,
		"backend", cfg.DataBackend)

	ticker := time.NewTicker(cfg.AllowanceInterval)
	defer ticker.Stop()

	// Run one pass on startup so a restart never misses today's payouts.
	logger.Info("Running initial allowance processing...")
	if paid, err := allowanceSvc.ProcessAllowances(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", "error", err)
	} else {
		logger.Info("Initial processing complete", "allowances_paid", len(paid))
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Processing due allowances...")
				paid, err := allowanceSvc.ProcessAllowances(ctx, now)
				if err != nil {
					logger.Error("Periodic processing failed", "error", err)
				} else {
					logger.Info("Periodic processing complete",
						"allowances_paid", len(paid),
						"next_check", now.Add(cfg.AllowanceInterval).Format("15:04:05"))
				}
			}
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

	logger.Info("Shutting down allowance-worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Allowance-worker shutdown complete")
	}
}
