package mysql

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/sqldrill/sqldrill/internal/engine"
	"github.com/sqldrill/sqldrill/internal/model"
)

// MySQLEngine implements engine.Engine for hosted MySQL practice sessions.
type MySQLEngine struct {
	db         *sqlx.DB
	schemaName string
}

// New creates a new MySQLEngine.
func New() engine.Engine {
	return &MySQLEngine{}
}

// Connect establishes a connection to the MySQL database and stores the
// schema name used by introspection queries. When no schema is configured
// the current database of the connection is used.
func (e *MySQLEngine) Connect(cfg engine.ConnectionConfig) error {
	db, err := sqlx.Connect("mysql", cfg.DSN)
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
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

	e.schemaName = cfg.SchemaName
	if e.schemaName == "" {
		var dbName string
		if err := db.Get(&dbName, "SELECT DATABASE()"); err == nil && dbName != "" {
			e.schemaName = dbName
		}
	}

	e.db = db
	return nil
}

// Disconnect closes the database connection.
func (e *MySQLEngine) Disconnect() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (e *MySQLEngine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB.
func (e *MySQLEngine) DB() *sqlx.DB {
	return e.db
}

// Execute runs one statement and returns its result set.
func (e *MySQLEngine) Execute(ctx context.Context, stmt string) (*model.QueryResult, error) {
	return engine.RunStatement(ctx, e.db, stmt)
}

// DriverName returns the driver identifier for MySQL.
func (e *MySQLEngine) DriverName() string { return "mysql" }

// QuoteIdentifier wraps a SQL identifier in backticks, escaping any
// embedded backticks.
func (e *MySQLEngine) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
