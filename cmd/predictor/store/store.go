// Package store constructs the snapshot store backend from configuration.
package store

import (
	"log/slog"
	"os"

	"github.com/HatiCode/salescast/cmd/predictor/config"
	"github.com/HatiCode/salescast/pkg/storage"
)

// New creates the snapshot store selected by cfg.StoreType. The returned
// store may implement io.Closer; callers should close it on shutdown.
func New(cfg *config.Config, logger *slog.Logger) storage.Store {
	switch cfg.StoreType {
	case "redis":
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			logger.Error("failed to create redis store", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		logger.Info("using redis snapshot store", "addr", cfg.RedisAddr, "ttl", cfg.RedisTTL)
		return s
	default:
		logger.Info("using in-memory snapshot store")
		return storage.NewMemoryStore()
	}
}
