package postgres

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/sqldrill/sqldrill/internal/engine"
	"github.com/sqldrill/sqldrill/internal/model"
)

// PostgresEngine implements engine.Engine for hosted PostgreSQL practice
// sessions. Each session points at its own scratch schema or database.
type PostgresEngine struct {
	db         *sqlx.DB
	schemaName string
}

// New creates a new PostgresEngine with the default "public" schema.
func New() engine.Engine {
	return &PostgresEngine{schemaName: "public"}
}

// Connect establishes a connection using the pgx stdlib driver and applies
// pool limits from the configuration.
func (e *PostgresEngine) Connect(cfg engine.ConnectionConfig) error {
	db, err := sqlx.Connect("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if cfg.SchemaName != "" {
		e.schemaName = cfg.SchemaName
	}

	e.db = db
	return nil
}

// Disconnect closes the database connection.
func (e *PostgresEngine) Disconnect() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (e *PostgresEngine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB.
func (e *PostgresEngine) DB() *sqlx.DB {
	return e.db
}

// Execute runs one statement and returns its result set.
func (e *PostgresEngine) Execute(ctx context.Context, stmt string) (*model.QueryResult, error) {
	return engine.RunStatement(ctx, e.db, stmt)
}

// DriverName returns the driver identifier for PostgreSQL.
func (e *PostgresEngine) DriverName() string { return "postgres" }

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double quotes.
func (e *PostgresEngine) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
