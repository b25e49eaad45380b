// Package backend opens the wallet store selected by configuration.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/config"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/storage"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/wallet"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/wallet/memory"
)

// CleanupFunc releases resources held by the store.
type CleanupFunc func() error

func noCleanup() error { return nil }

// Open returns the store named by cfg.DataBackend and its cleanup function.
func Open(cfg *config.Config, logger *slog.Logger) (wallet.Store, CleanupFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, repo.Close, nil

	case "memory", "":
		logger.Info("Initialized memory backend")
		return memory.New(), noCleanup, nil

	default:
		return nil, nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}
