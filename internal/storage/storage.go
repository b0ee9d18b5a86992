// Package storage opens the configured database.DataStore
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"territory-planner/internal/config"
	"territory-planner/internal/database"
	"territory-planner/internal/postgres"
	"territory-planner/internal/sqlite"
)

// Open returns the store selected by cfg.Driver. Empty file paths resolve to
// the application directory.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (database.DataStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case config.DriverSQLite, "":
		path := cfg.SQLitePath
		if path == "" {
			var err error
			if path, err = database.GetDefaultDBPath(); err != nil {
				return nil, err
			}
		}
		return sqlite.New(path, logger)

	case config.DriverJSON:
		path := cfg.JSONPath
		if path == "" {
			var err error
			if path, err = database.GetDataFilePath(); err != nil {
				return nil, err
			}
		}
		return database.NewJSONStore(path, logger)

	case config.DriverPostgres:
		return postgres.New(ctx, cfg.PostgresDSN, logger)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
