package postgres

import (
	"context"
	"fmt"

	"github.com/sqldrill/sqldrill/internal/model"
)

// columnRow holds the result of querying information_schema.columns.
type columnRow struct {
	TableName  string `db:"table_name"`
	ColumnName string `db:"column_name"`
	IsNullable string `db:"is_nullable"`
	UDTName    string `db:"udt_name"`
	Position   int    `db:"ordinal_position"`
}

// constraintRow holds one constraint column from information_schema, joined
// so that constraints without key columns (CHECK) still appear once.
type constraintRow struct {
	TableName      string  `db:"table_name"`
	ConstraintName string  `db:"constraint_name"`
	ConstraintType string  `db:"constraint_type"`
	ColumnName     *string `db:"column_name"`
	CheckClause    *string `db:"check_clause"`
}

// indexRow holds one index column from pg_catalog with its ordinal position.
type indexRow struct {
	TableName  string `db:"table_name"`
	IndexName  string `db:"index_name"`
	IsUnique   bool   `db:"is_unique"`
	ColumnName string `db:"column_name"`
	Ord        int    `db:"ord"`
}

// InspectSchema enumerates the user tables of the configured schema with
// their columns, constraints, and indexes.
func (e *PostgresEngine) InspectSchema(ctx context.Context) (*model.SchemaSnapshot, error) {
	const tableQuery = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var names []string
	if err := e.db.SelectContext(ctx, &names, tableQuery, e.schemaName); err != nil {
		return nil, fmt.Errorf("inspect tables: %w", err)
	}

	columns, err := e.fetchColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect columns: %w", err)
	}
	constraints, err := e.fetchConstraints(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect constraints: %w", err)
	}
	indexes, err := e.fetchIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect indexes: %w", err)
	}

	snap := &model.SchemaSnapshot{Tables: []model.TableInfo{}}
	for _, name := range names {
		snap.Tables = append(snap.Tables, model.TableInfo{
			Name:        name,
			Columns:     columns[name],
			Constraints: constraints[name],
			Indexes:     indexes[name],
		})
	}
	for i := range snap.Tables {
		if snap.Tables[i].Columns == nil {
			snap.Tables[i].Columns = []model.ColumnInfo{}
		}
		if snap.Tables[i].Constraints == nil {
			snap.Tables[i].Constraints = []model.ConstraintInfo{}
		}
		if snap.Tables[i].Indexes == nil {
			snap.Tables[i].Indexes = []model.IndexInfo{}
		}
	}
	return snap, nil
}

func (e *PostgresEngine) fetchColumns(ctx context.Context) (map[string][]model.ColumnInfo, error) {
	const query = `SELECT table_name, column_name, is_nullable, udt_name, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`

	var rows []columnRow
	if err := e.db.SelectContext(ctx, &rows, query, e.schemaName); err != nil {
		return nil, err
	}

	out := map[string][]model.ColumnInfo{}
	for _, r := range rows {
		out[r.TableName] = append(out[r.TableName], model.ColumnInfo{
			Name:     r.ColumnName,
			Type:     r.UDTName,
			Nullable: r.IsNullable == "YES",
		})
	}
	return out, nil
}

func (e *PostgresEngine) fetchConstraints(ctx context.Context) (map[string][]model.ConstraintInfo, error) {
	// One row per constraint column, ordered so grouping preserves the
	// constraint's declared column order. CHECK constraints carry no key
	// columns and join against check_clauses instead.
	const query = `SELECT
			tc.table_name,
			tc.constraint_name,
			tc.constraint_type,
			kcu.column_name,
			cc.check_clause
		FROM information_schema.table_constraints tc
		LEFT JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		LEFT JOIN information_schema.check_constraints cc
			ON tc.constraint_name = cc.constraint_name
			AND tc.constraint_schema = cc.constraint_schema
		WHERE tc.table_schema = $1
			AND tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY', 'UNIQUE', 'CHECK')
		ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position`

	var rows []constraintRow
	if err := e.db.SelectContext(ctx, &rows, query, e.schemaName); err != nil {
		return nil, err
	}

	out := map[string][]model.ConstraintInfo{}
	for _, r := range rows {
		tableCons := out[r.TableName]
		idx := -1
		for i := range tableCons {
			if tableCons[i].Name == r.ConstraintName {
				idx = i
				break
			}
		}
		if idx < 0 {
			def := ""
			if r.CheckClause != nil {
				def = *r.CheckClause
			}
			tableCons = append(tableCons, model.ConstraintInfo{
				Name:       r.ConstraintName,
				Type:       model.ConstraintType(r.ConstraintType),
				Definition: def,
			})
			idx = len(tableCons) - 1
		}
		if r.ColumnName != nil {
			tableCons[idx].Columns = append(tableCons[idx].Columns, *r.ColumnName)
		}
		out[r.TableName] = tableCons
	}
	return out, nil
}

func (e *PostgresEngine) fetchIndexes(ctx context.Context) (map[string][]model.IndexInfo, error) {
	// pg_indexes only exposes the index definition text, so ordered column
	// lists come from pg_index directly. Primary key indexes are skipped;
	// they already surface as constraints.
	const query = `SELECT
			t.relname AS table_name,
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			a.attname AS column_name,
			k.ord
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = $1 AND NOT ix.indisprimary
		ORDER BY t.relname, i.relname, k.ord`

	var rows []indexRow
	if err := e.db.SelectContext(ctx, &rows, query, e.schemaName); err != nil {
		return nil, err
	}

	out := map[string][]model.IndexInfo{}
	for _, r := range rows {
		tableIdx := out[r.TableName]
		idx := -1
		for i := range tableIdx {
			if tableIdx[i].Name == r.IndexName {
				idx = i
				break
			}
		}
		if idx < 0 {
			tableIdx = append(tableIdx, model.IndexInfo{
				Name:     r.IndexName,
				IsUnique: r.IsUnique,
			})
			idx = len(tableIdx) - 1
		}
		tableIdx[idx].Columns = append(tableIdx[idx].Columns, r.ColumnName)
		out[r.TableName] = tableIdx
	}
	return out, nil
}
