package storage

import (
	"context"
	"fmt"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/config"
)

// Open returns the store selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config, logger internal.Logger) (Store, error) {
	switch cfg.StorageBackend {
	case config.BackendFile:
		logger.Infof("using file storage in %s", cfg.DataDir)
		return NewFileStorage(cfg.DataDir, logger)
	case config.BackendSQLite:
		logger.Infof("using sqlite storage at %s", cfg.SQLitePath)
		return NewSQLiteStorage(cfg.SQLitePath, logger)
	case config.BackendPostgres:
		logger.Info("using postgres storage")
		return NewPostgresStorage(ctx, cfg.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
