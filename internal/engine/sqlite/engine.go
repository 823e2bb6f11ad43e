package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sqldrill/sqldrill/internal/engine"
	"github.com/sqldrill/sqldrill/internal/model"
)

// SQLiteEngine implements engine.Engine on an embedded SQLite database. It
// backs the default practice sessions: each session gets a private in-memory
// database seeded from the exercise's setup statements.
type SQLiteEngine struct {
	db *sqlx.DB
}

// New creates a new SQLiteEngine.
func New() engine.Engine {
	return &SQLiteEngine{}
}

// Connect opens the SQLite database named in the DSN. An empty DSN opens a
// fresh in-memory database, which is the per-session default.
func (e *SQLiteEngine) Connect(cfg engine.ConnectionConfig) error {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("sqlite connect: %w", err)
	}

	// A session is a single live connection; pooling would scatter the
	// in-memory database across connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	e.db = db
	return nil
}

// Disconnect closes the database, discarding all session state.
func (e *SQLiteEngine) Disconnect() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (e *SQLiteEngine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB.
func (e *SQLiteEngine) DB() *sqlx.DB {
	return e.db
}

// Execute runs one statement and returns its result set.
func (e *SQLiteEngine) Execute(ctx context.Context, stmt string) (*model.QueryResult, error) {
	return engine.RunStatement(ctx, e.db, stmt)
}

// DriverName returns the driver identifier for SQLite.
func (e *SQLiteEngine) DriverName() string { return "sqlite" }

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double quotes.
func (e *SQLiteEngine) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
