// Package store opens the backend selected by STORE_DRIVER.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/event-board/internal/config"
	"github.com/sakif/event-board/internal/repository"
	mongoRepo "github.com/sakif/event-board/internal/repository/mongo"
	sqliteRepo "github.com/sakif/event-board/internal/repository/sqlite"
)

// Open connects to the configured store. The caller closes it.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		db, err := mongoRepo.New(ctx, cfg.MongoURL, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, fmt.Errorf("opening mongo store: %w", err)
		}
		logger.Info("using mongo store", slog.String("database", cfg.MongoDatabase))
		return db, nil

	case config.DriverSQLite:
		if cfg.SQLitePath != ":memory:" {
			dir := filepath.Dir(cfg.SQLitePath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		db, err := sqliteRepo.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Info("using sqlite store", slog.String("path", cfg.SQLitePath))
		return db, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
