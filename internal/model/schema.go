package model

import "strings"

// ConstraintType is one of the four constraint kinds the introspectors
// surface.
type ConstraintType string

const (
	ConstraintPrimaryKey ConstraintType = "PRIMARY KEY"
	ConstraintForeignKey ConstraintType = "FOREIGN KEY"
	ConstraintUnique     ConstraintType = "UNIQUE"
	ConstraintCheck      ConstraintType = "CHECK"
)

// SchemaSnapshot is a structural description of the practice database at a
// point in time. Snapshots are produced on demand by re-querying the catalog
// and are never cached across mutating statements.
type SchemaSnapshot struct {
	Tables []TableInfo `json:"tables"`
}

// TableInfo describes the structure of a single user table.
type TableInfo struct {
	Name        string           `json:"name"`
	Columns     []ColumnInfo     `json:"columns"`
	Constraints []ConstraintInfo `json:"constraints"`
	Indexes     []IndexInfo      `json:"indexes"`
}

// ColumnInfo describes a single column within a table.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // normalized catalog type string
	Nullable bool   `json:"nullable"`
}

// ConstraintInfo describes a table constraint. Columns is ordered as the
// constraint defines them.
type ConstraintInfo struct {
	Name       string         `json:"name"`
	Type       ConstraintType `json:"type"`
	Columns    []string       `json:"columns"`
	Definition string         `json:"definition,omitempty"`
}

// IndexInfo describes a database index on one or more columns.
type IndexInfo struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	IsUnique bool     `json:"is_unique"`
}

// Table locates a table by case-insensitive name. Returns nil when absent;
// callers treat absence as "not found", never as an error.
func (s *SchemaSnapshot) Table(name string) *TableInfo {
	if s == nil {
		return nil
	}
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].Name, name) {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableNames returns the snapshot's table names in catalog order.
func (s *SchemaSnapshot) TableNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Column locates a column by case-insensitive name.
func (t *TableInfo) Column(name string) *ColumnInfo {
	if t == nil {
		return nil
	}
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// ConstraintsOfType returns the table's constraints of the given kind.
func (t *TableInfo) ConstraintsOfType(kind ConstraintType) []ConstraintInfo {
	if t == nil {
		return nil
	}
	var out []ConstraintInfo
	for _, c := range t.Constraints {
		if c.Type == kind {
			out = append(out, c)
		}
	}
	return out
}
