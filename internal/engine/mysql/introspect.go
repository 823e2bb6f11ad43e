package mysql

import (
	"context"
	"fmt"

	"github.com/sqldrill/sqldrill/internal/model"
)

// columnRow holds the result of querying INFORMATION_SCHEMA.COLUMNS.
type columnRow struct {
	TableName  string `db:"TABLE_NAME"`
	ColumnName string `db:"COLUMN_NAME"`
	DataType   string `db:"DATA_TYPE"`
	IsNullable string `db:"IS_NULLABLE"`
}

// constraintRow holds one constraint column from INFORMATION_SCHEMA.
type constraintRow struct {
	TableName      string  `db:"TABLE_NAME"`
	ConstraintName string  `db:"CONSTRAINT_NAME"`
	ConstraintType string  `db:"CONSTRAINT_TYPE"`
	ColumnName     *string `db:"COLUMN_NAME"`
}

// statisticsRow holds one index column from INFORMATION_SCHEMA.STATISTICS.
type statisticsRow struct {
	TableName  string `db:"TABLE_NAME"`
	IndexName  string `db:"INDEX_NAME"`
	NonUnique  int    `db:"NON_UNIQUE"`
	ColumnName string `db:"COLUMN_NAME"`
	SeqInIndex int    `db:"SEQ_IN_INDEX"`
}

// InspectSchema enumerates the user tables of the connection's database with
// their columns, constraints, and indexes.
func (e *MySQLEngine) InspectSchema(ctx context.Context) (*model.SchemaSnapshot, error) {
	const tableQuery = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

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
		tbl := model.TableInfo{
			Name:        name,
			Columns:     columns[name],
			Constraints: constraints[name],
			Indexes:     indexes[name],
		}
		if tbl.Columns == nil {
			tbl.Columns = []model.ColumnInfo{}
		}
		if tbl.Constraints == nil {
			tbl.Constraints = []model.ConstraintInfo{}
		}
		if tbl.Indexes == nil {
			tbl.Indexes = []model.IndexInfo{}
		}
		snap.Tables = append(snap.Tables, tbl)
	}
	return snap, nil
}

func (e *MySQLEngine) fetchColumns(ctx context.Context) (map[string][]model.ColumnInfo, error) {
	const query = `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME, ORDINAL_POSITION`

	var rows []columnRow
	if err := e.db.SelectContext(ctx, &rows, query, e.schemaName); err != nil {
		return nil, err
	}

	out := map[string][]model.ColumnInfo{}
	for _, r := range rows {
		out[r.TableName] = append(out[r.TableName], model.ColumnInfo{
			Name:     r.ColumnName,
			Type:     r.DataType,
			Nullable: r.IsNullable == "YES",
		})
	}
	return out, nil
}

func (e *MySQLEngine) fetchConstraints(ctx context.Context) (map[string][]model.ConstraintInfo, error) {
	const query = `SELECT
			tc.TABLE_NAME,
			tc.CONSTRAINT_NAME,
			tc.CONSTRAINT_TYPE,
			kcu.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		LEFT JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
			AND tc.TABLE_NAME = kcu.TABLE_NAME
		WHERE tc.TABLE_SCHEMA = ?
			AND tc.CONSTRAINT_TYPE IN ('PRIMARY KEY', 'FOREIGN KEY', 'UNIQUE', 'CHECK')
		ORDER BY tc.TABLE_NAME, tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

	var rows []constraintRow
	if err := e.db.SelectContext(ctx, &rows, query, e.schemaName); err != nil {
		return nil, err
	}

	out := map[string][]model.ConstraintInfo{}
	for _, r := range rows {
		cons := out[r.TableName]
		idx := -1
		for i := range cons {
			if cons[i].Name == r.ConstraintName {
				idx = i
				break
			}
		}
		if idx < 0 {
			cons = append(cons, model.ConstraintInfo{
				Name: r.ConstraintName,
				Type: model.ConstraintType(r.ConstraintType),
			})
			idx = len(cons) - 1
		}
		if r.ColumnName != nil {
			cons[idx].Columns = append(cons[idx].Columns, *r.ColumnName)
		}
		out[r.TableName] = cons
	}
	return out, nil
}

func (e *MySQLEngine) fetchIndexes(ctx context.Context) (map[string][]model.IndexInfo, error) {
	const query = `SELECT TABLE_NAME, INDEX_NAME, NON_UNIQUE, COLUMN_NAME, SEQ_IN_INDEX
		FROM INFORMATION_SCHEMA.STATISTICS
		WHERE TABLE_SCHEMA = ? AND INDEX_NAME <> 'PRIMARY'
		ORDER BY TABLE_NAME, INDEX_NAME, SEQ_IN_INDEX`

	var rows []statisticsRow
	if err := e.db.SelectContext(ctx, &rows, query, e.schemaName); err != nil {
		return nil, err
	}

	out := map[string][]model.IndexInfo{}
	for _, r := range rows {
		idxs := out[r.TableName]
		idx := -1
		for i := range idxs {
			if idxs[i].Name == r.IndexName {
				idx = i
				break
			}
		}
		if idx < 0 {
			idxs = append(idxs, model.IndexInfo{
				Name:     r.IndexName,
				IsUnique: r.NonUnique == 0,
			})
			idx = len(idxs) - 1
		}
		idxs[idx].Columns = append(idxs[idx].Columns, r.ColumnName)
		out[r.TableName] = idxs
	}
	return out, nil
}
