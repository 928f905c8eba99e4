// Package migrate runs embedded SQL schema migrations with goose.
package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Dir is the directory inside each embedded filesystem holding the .sql files.
const Dir = "migrations"

// Supported commands.
const (
	CommandUp      = "up"
	CommandUpByOne = "up-by-one"
	CommandDown    = "down"
	CommandRedo    = "redo"
	CommandReset   = "reset"
	CommandStatus  = "status"
	CommandVersion = "version"
)

// goose keeps its filesystem and dialect in package globals.
var mu sync.Mutex

// Run executes a goose command against db using the migrations embedded in fsys.
// dialect is a goose dialect name ("sqlite3", "postgres").
func Run(db *sql.DB, fsys fs.FS, dialect, command string, logger zerolog.Logger) error {
	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	goose.SetLogger(&gooseLogger{logger: logger.With().Str("component", "migrate").Logger()})

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	var err error
	switch command {
	case CommandUp:
		err = goose.Up(db, Dir)
	case CommandUpByOne:
		err = goose.UpByOne(db, Dir)
	case CommandDown:
		err = goose.Down(db, Dir)
	case CommandRedo:
		err = goose.Redo(db, Dir)
	case CommandReset:
		err = goose.Reset(db, Dir)
	case CommandStatus:
		err = goose.Status(db, Dir)
	case CommandVersion:
		err = goose.Version(db, Dir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}

// gooseLogger adapts zerolog to goose.Logger.
type gooseLogger struct {
	logger zerolog.Logger
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}
