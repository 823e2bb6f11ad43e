package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sqldrill/sqldrill/internal/model"
)

// ConnectionConfig holds practice-database connection parameters.
type ConnectionConfig struct {
	Driver          string
	DSN             string
	SchemaName      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Engine is the interface every practice-database backend implements. One
// engine serves one exercise-browsing session; callers must serialize access.
type Engine interface {
	// Connection management
	Connect(cfg ConnectionConfig) error
	Disconnect() error
	Ping(ctx context.Context) error
	DB() *sqlx.DB

	// Execute runs a single SQL statement and returns its result set. DDL
	// and writes return a result with no fields. A failed execution is
	// returned as a *ExecError.
	Execute(ctx context.Context, stmt string) (*model.QueryResult, error)

	// InspectSchema enumerates the user tables of the active schema with
	// their columns, constraints, and indexes. The snapshot reflects state
	// after the most recent DDL in the session; nothing is cached.
	InspectSchema(ctx context.Context) (*model.SchemaSnapshot, error)

	// Metadata
	DriverName() string
	QuoteIdentifier(name string) string
}

// ExecError is the structured failure an engine raises when the database
// rejects a statement. Message carries the driver's text; Code is the
// driver-specific error code when one is available.
type ExecError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *ExecError) Error() string { return e.Message }

// WrapExec converts a driver error into an ExecError, passing through
// errors that already are one.
func WrapExec(err error) *ExecError {
	if err == nil {
		return nil
	}
	if ee, ok := err.(*ExecError); ok {
		return ee
	}
	return &ExecError{Message: err.Error()}
}

// RunStatement executes one statement through sqlx and builds a QueryResult
// from whatever rows come back. Statements that produce no result set (DDL,
// writes without RETURNING) yield a result with empty fields. All backends
// share this path so result shape does not vary by driver.
func RunStatement(ctx context.Context, db *sqlx.DB, stmt string) (*model.QueryResult, error) {
	rows, err := db.QueryxContext(ctx, stmt)
	if err != nil {
		return nil, WrapExec(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, WrapExec(err)
	}

	res := &model.QueryResult{
		Rows:   []model.Row{},
		Fields: make([]model.Field, 0, len(cols)),
	}
	for _, c := range cols {
		res.Fields = append(res.Fields, model.Field{Name: c})
	}

	for rows.Next() {
		raw := map[string]interface{}{}
		if err := rows.MapScan(raw); err != nil {
			return nil, WrapExec(err)
		}
		row := make(model.Row, len(raw))
		for k, v := range raw {
			row[k] = NormalizeValue(v)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapExec(err)
	}

	return res, nil
}

// NormalizeValue maps driver-specific scan types onto the small set of value
// types the validators compare against: string, int64, float64, bool,
// time.Time, and nil.
func NormalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case sql.RawBytes:
		return string(x)
	default:
		return v
	}
}
