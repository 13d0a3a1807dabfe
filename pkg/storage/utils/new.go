// Package storageutils selects a session storage backend from configuration.
package storageutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/relay/pkg/storage"
	"github.com/papercomputeco/relay/pkg/storage/inmemory"
	"github.com/papercomputeco/relay/pkg/storage/postgres"
	"github.com/papercomputeco/relay/pkg/storage/sqlite"
)

type NewDriverOpts struct {
	SQLitePath  string
	PostgresDSN string
	Logger      *slog.Logger
}

// NewDriver opens the configured backend. PostgresDSN wins over SQLitePath;
// with neither set the records are kept in memory.
func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch {
	case o.PostgresDSN != "":
		driver, err := postgres.NewDriver(ctx, o.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		logger.Info("using PostgreSQL storage")
		return driver, nil

	case o.SQLitePath != "":
		driver, err := sqlite.NewSQLiteDriver(ctx, o.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		logger.Info("using SQLite storage", "path", o.SQLitePath)
		return driver, nil

	default:
		logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}
