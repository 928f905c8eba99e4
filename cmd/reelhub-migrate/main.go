// Package main is the entry point for the Reelhub database migration tool.
// SQL drivers run embedded goose migrations; MongoDB only syncs indexes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/reelhub/internal/config"
	"github.com/prn-tf/reelhub/internal/pkg/migrate"
	"github.com/prn-tf/reelhub/internal/repository/store"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// sqlMigrator is implemented by the goose-backed drivers.
type sqlMigrator interface {
	RunMigrations(command string) error
}

func main() {
	fs := flag.NewFlagSet("reelhub-migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Usage = printUsage

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	switch command {
	case "version":
		fmt.Printf("Reelhub Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return

	case "help", "-h", "--help":
		printUsage()
		return

	case migrate.CommandUp, migrate.CommandUpByOne, migrate.CommandDown,
		migrate.CommandRedo, migrate.CommandReset, migrate.CommandStatus, migrate.CommandVersion + "-db":

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(*configPath, command); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}
}

func run(configPath, command string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// The tool decides what runs; never migrate implicitly on open.
	dbCfg := cfg.Database
	dbCfg.AutoMigrate = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := store.Open(ctx, dbCfg, log.Logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if command == migrate.CommandVersion+"-db" {
		command = migrate.CommandVersion
	}

	m, ok := st.Database.(sqlMigrator)
	if !ok {
		if command != migrate.CommandUp {
			return fmt.Errorf("%s driver only supports %q (index sync)", st.Driver, migrate.CommandUp)
		}
		return st.Database.Migrate(ctx)
	}

	log.Info().Str("driver", st.Driver).Str("command", command).Msg("running migrations")
	return m.RunMigrations(command)
}

func printUsage() {
	fmt.Println(`Reelhub Migration Tool

Usage:
  reelhub-migrate <command> [--config path]

Commands:
  up          Run all pending migrations (MongoDB: create indexes)
  up-by-one   Apply the next pending migration
  down        Roll back the last migration
  redo        Roll back and re-apply the last migration
  reset       Roll back all migrations
  status      Show migration status
  version-db  Print the current schema version
  version     Print tool version information
  help        Show this help message

Configuration is read from config.yaml and REELHUB_* environment variables.

Examples:
  reelhub-migrate up
  reelhub-migrate status --config ./configs/config.yaml
  REELHUB_DATABASE_DRIVER=postgres reelhub-migrate down`)
}
