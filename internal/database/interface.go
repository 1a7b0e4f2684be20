// Package database is the generic storage layer backing the agent's local
// job-history audit trail. It is never consulted to resume or reconstruct
// in-flight scan state — only to answer "what has this agent done" after
// the fact.
package database

import (
	"context"
	"fmt"

	"github.com/ctrlscan/scan-agent/internal/config"
)

// DB is the generic storage interface used by the history store.
// Implementations exist for SQLite (default) and MySQL.
type DB interface {
	// Select executes a query and scans rows into dest (slice pointer).
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Get executes a query expected to return a single row and scans into dest.
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...interface{}) error

	// Insert inserts a struct-tagged record into table and returns the new row ID.
	Insert(ctx context.Context, table string, record interface{}) (int64, error)

	// Migrate applies pending schema migrations in order.
	Migrate(ctx context.Context) error

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error

	// Close releases the database connection.
	Close() error

	// Driver returns the backend name: "sqlite" or "mysql".
	Driver() string
}

// New returns a DB implementation matching cfg.Driver. SQLite is the
// default when driver is empty; an unrecognised driver is an error. An
// empty driver with no path set still resolves to a usable default (see
// NewSQLite).
func New(cfg config.HistoryConfig) (DB, error) {
	switch cfg.Driver {
	case "mysql":
		return NewMySQL(cfg)
	case "sqlite", "sqlite3", "":
		return NewSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported history database driver %q (supported: sqlite, mysql)", cfg.Driver)
	}
}
