package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqldrill/sqldrill/internal/model"
)

// tableInfoRow holds a row from PRAGMA table_info().
type tableInfoRow struct {
	CID     int     `db:"cid"`
	Name    string  `db:"name"`
	Type    string  `db:"type"`
	NotNull int     `db:"notnull"`
	Default *string `db:"dflt_value"`
	PK      int     `db:"pk"`
}

// foreignKeyRow holds a row from PRAGMA foreign_key_list().
type foreignKeyRow struct {
	ID       int    `db:"id"`
	Seq      int    `db:"seq"`
	Table    string `db:"table"`
	From     string `db:"from"`
	To       string `db:"to"`
	OnUpdate string `db:"on_update"`
	OnDelete string `db:"on_delete"`
	Match    string `db:"match"`
}

// indexListRow holds a row from PRAGMA index_list().
type indexListRow struct {
	Seq     int    `db:"seq"`
	Name    string `db:"name"`
	Unique  int    `db:"unique"`
	Origin  string `db:"origin"`
	Partial int    `db:"partial"`
}

// indexInfoRow holds a row from PRAGMA index_info().
type indexInfoRow struct {
	SeqNo int     `db:"seqno"`
	CID   int     `db:"cid"`
	Name  *string `db:"name"`
}

// InspectSchema enumerates all user tables with their columns, constraints,
// and indexes. Returns an empty snapshot for an empty database.
func (e *SQLiteEngine) InspectSchema(ctx context.Context) (*model.SchemaSnapshot, error) {
	const query = `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var names []string
	if err := e.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("inspect schema: %w", err)
	}

	snap := &model.SchemaSnapshot{Tables: []model.TableInfo{}}
	for _, name := range names {
		tbl, err := e.inspectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("inspect table %q: %w", name, err)
		}
		snap.Tables = append(snap.Tables, *tbl)
	}
	return snap, nil
}

func (e *SQLiteEngine) inspectTable(ctx context.Context, tableName string) (*model.TableInfo, error) {
	pragmaQuery := fmt.Sprintf("PRAGMA table_info(%s)", e.QuoteIdentifier(tableName))
	var cols []tableInfoRow
	if err := e.db.SelectContext(ctx, &cols, pragmaQuery); err != nil {
		return nil, fmt.Errorf("table_info for %q: %w", tableName, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q not found", tableName)
	}

	tbl := &model.TableInfo{
		Name:        tableName,
		Columns:     make([]model.ColumnInfo, 0, len(cols)),
		Constraints: []model.ConstraintInfo{},
		Indexes:     []model.IndexInfo{},
	}

	// Columns and the primary key. PRAGMA table_info reports the 1-based
	// position of each column within the key, which gives us the ordered
	// column list.
	pkOrder := map[int]string{}
	pkCount := 0
	for _, col := range cols {
		isPK := col.PK > 0
		if isPK {
			pkOrder[col.PK] = col.Name
			pkCount++
		}
		tbl.Columns = append(tbl.Columns, model.ColumnInfo{
			Name:     col.Name,
			Type:     col.Type,
			Nullable: col.NotNull == 0 && !isPK,
		})
	}
	if pkCount > 0 {
		pkCols := make([]string, 0, pkCount)
		for i := 1; i <= pkCount; i++ {
			if name, ok := pkOrder[i]; ok {
				pkCols = append(pkCols, name)
			}
		}
		tbl.Constraints = append(tbl.Constraints, model.ConstraintInfo{
			Name:    fmt.Sprintf("%s_pkey", tableName),
			Type:    model.ConstraintPrimaryKey,
			Columns: pkCols,
		})
	}

	// Foreign keys. PRAGMA foreign_key_list emits one row per column,
	// grouped by constraint id with seq giving the column order.
	fkQuery := fmt.Sprintf("PRAGMA foreign_key_list(%s)", e.QuoteIdentifier(tableName))
	var fkRows []foreignKeyRow
	if err := e.db.SelectContext(ctx, &fkRows, fkQuery); err != nil {
		return nil, fmt.Errorf("foreign_key_list for %q: %w", tableName, err)
	}
	fkCols := map[int][]string{}
	fkRef := map[int]string{}
	for _, fk := range fkRows {
		fkCols[fk.ID] = append(fkCols[fk.ID], fk.From)
		fkRef[fk.ID] = fk.Table
	}
	for id, columns := range fkCols {
		tbl.Constraints = append(tbl.Constraints, model.ConstraintInfo{
			Name:       fmt.Sprintf("fk_%s_%s", tableName, strings.Join(columns, "_")),
			Type:       model.ConstraintForeignKey,
			Columns:    columns,
			Definition: fmt.Sprintf("REFERENCES %s", fkRef[id]),
		})
	}

	// Indexes. Origin 'u' marks the index SQLite creates to back a UNIQUE
	// constraint; those surface as constraints as well as indexes. Origin
	// 'pk' duplicates the primary key and is skipped.
	idxQuery := fmt.Sprintf("PRAGMA index_list(%s)", e.QuoteIdentifier(tableName))
	var idxRows []indexListRow
	if err := e.db.SelectContext(ctx, &idxRows, idxQuery); err != nil {
		return nil, fmt.Errorf("index_list for %q: %w", tableName, err)
	}
	for _, idx := range idxRows {
		if idx.Origin == "pk" {
			continue
		}

		infoQuery := fmt.Sprintf("PRAGMA index_info(%s)", e.QuoteIdentifier(idx.Name))
		var infoRows []indexInfoRow
		if err := e.db.SelectContext(ctx, &infoRows, infoQuery); err != nil {
			continue
		}
		idxCols := make([]string, 0, len(infoRows))
		for _, info := range infoRows {
			if info.Name != nil {
				idxCols = append(idxCols, *info.Name)
			}
		}

		if idx.Origin == "u" {
			tbl.Constraints = append(tbl.Constraints, model.ConstraintInfo{
				Name:    idx.Name,
				Type:    model.ConstraintUnique,
				Columns: idxCols,
			})
		}
		tbl.Indexes = append(tbl.Indexes, model.IndexInfo{
			Name:     idx.Name,
			Columns:  idxCols,
			IsUnique: idx.Unique == 1,
		})
	}

	// CHECK constraints only appear in the table's CREATE statement.
	for i, def := range e.checkClauses(ctx, tableName) {
		tbl.Constraints = append(tbl.Constraints, model.ConstraintInfo{
			Name:       fmt.Sprintf("%s_check_%d", tableName, i+1),
			Type:       model.ConstraintCheck,
			Definition: def,
		})
	}

	return tbl, nil
}

// checkClauses extracts the CHECK (...) expressions from a table's creation
// SQL in sqlite_master. Extraction failures yield no constraints rather
// than an error.
func (e *SQLiteEngine) checkClauses(ctx context.Context, tableName string) []string {
	var createSQL string
	const query = `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`
	if err := e.db.GetContext(ctx, &createSQL, query, tableName); err != nil {
		return nil
	}

	var clauses []string
	upper := strings.ToUpper(createSQL)
	for i := 0; i+5 <= len(upper); {
		pos := strings.Index(upper[i:], "CHECK")
		if pos < 0 {
			break
		}
		start := i + pos + len("CHECK")
		// Skip whitespace up to the opening paren.
		j := start
		for j < len(createSQL) && (createSQL[j] == ' ' || createSQL[j] == '\t' || createSQL[j] == '\n') {
			j++
		}
		if j >= len(createSQL) || createSQL[j] != '(' {
			i = start
			continue
		}
		depth := 0
		end := -1
		for k := j; k < len(createSQL); k++ {
			switch createSQL[k] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					end = k
				}
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			break
		}
		clauses = append(clauses, strings.TrimSpace(createSQL[j+1:end]))
		i = end + 1
	}
	return clauses
}
