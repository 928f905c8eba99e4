// Package store wires the concrete database drivers into the repository factory.
package store

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/config"
	"github.com/prn-tf/reelhub/internal/repository"
	"github.com/prn-tf/reelhub/internal/repository/mongodb"
	"github.com/prn-tf/reelhub/internal/repository/postgres"
	"github.com/prn-tf/reelhub/internal/repository/sqlite"
)

// Openers returns the opener of every supported driver.
func Openers() map[string]repository.Opener {
	return map[string]repository.Opener{
		config.DriverSQLite:   openSQLite,
		config.DriverPostgres: openPostgres,
		config.DriverMongo:    openMongo,
	}
}

// Open connects the configured driver and returns its repositories.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.Store, error) {
	return repository.NewFactory(cfg, logger, Openers()).Open(ctx)
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.Store, error) {
	db, err := sqlite.NewDB(ctx, sqlite.ConfigFrom(cfg), logger)
	if err != nil {
		return nil, err
	}
	return &repository.Store{Repos: sqlite.NewRepositories(db), Database: db}, nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.Store, error) {
	db, err := postgres.NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &repository.Store{Repos: postgres.NewRepositories(db), Database: db}, nil
}

func openMongo(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.Store, error) {
	db, err := mongodb.NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &repository.Store{Repos: mongodb.NewRepositories(db), Database: db}, nil
}
