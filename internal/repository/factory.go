// This file contains the factory that opens a store based on configuration.

package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/reelhub/internal/config"
)

// Database is the connection handle behind a set of repositories.
// It satisfies handler.HealthChecker for the readiness endpoint.
type Database interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error

	// Migrate brings the schema (or indexes) up to date.
	Migrate(ctx context.Context) error
}

// Store is an opened database together with its repositories.
type Store struct {
	Driver   string
	Repos    *Repositories
	Database Database
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.Database.Close()
}

// Opener connects a driver and builds its repositories.
type Opener func(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Store, error)

// Factory creates repositories based on configuration.
type Factory struct {
	cfg     config.DatabaseConfig
	logger  zerolog.Logger
	openers map[string]Opener
}

// NewFactory creates a new repository factory with the given driver openers.
func NewFactory(cfg config.DatabaseConfig, logger zerolog.Logger, openers map[string]Opener) *Factory {
	return &Factory{
		cfg:     cfg,
		logger:  logger,
		openers: openers,
	}
}

// Driver returns the configured database driver.
func (f *Factory) Driver() string {
	return f.cfg.Driver
}

// IsEmbedded returns true if using embedded database.
func (f *Factory) IsEmbedded() bool {
	return f.cfg.IsEmbedded()
}

// Open connects the configured driver. When AutoMigrate is set the schema
// is migrated before the store is returned.
func (f *Factory) Open(ctx context.Context) (*Store, error) {
	open, ok := f.openers[f.cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, f.cfg.Driver)
	}

	store, err := open(ctx, f.cfg, f.logger)
	if err != nil {
		return nil, err
	}
	store.Driver = f.cfg.Driver

	if f.cfg.AutoMigrate {
		if err := store.Database.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to migrate %s store: %w", f.cfg.Driver, err)
		}
	}

	f.logger.Info().
		Str("driver", f.cfg.Driver).
		Bool("embedded", f.IsEmbedded()).
		Bool("auto_migrate", f.cfg.AutoMigrate).
		Msg("store opened")

	return store, nil
}
