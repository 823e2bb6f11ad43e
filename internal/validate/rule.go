// Package validate is the exercise grading engine: it decides whether a
// query result or a post-DDL schema satisfies an exercise's declarative
// rule, and turns raw execution errors into teachable diagnostics.
package validate

import (
	"encoding/json"
	"fmt"
)

// ResultConditions is the rule payload for exact and partial result checks.
// Every field is optional; absent fields are vacuously satisfied. An
// all-absent payload therefore always passes, which `exercise lint` flags
// as a content bug rather than grading around it.
type ResultConditions struct {
	// Rows, when set, requires the result row count to equal it exactly.
	// Only honored by exact rules.
	Rows *int `json:"rows,omitempty"`

	// Columns lists column names that must be present in the result.
	// Extra result columns are allowed.
	Columns []string `json:"columns,omitempty"`

	// Values is matched positionally: row i must contain every key/value
	// pair of Values[i]. Row order matters. Only honored by exact rules.
	Values []map[string]interface{} `json:"values,omitempty"`

	// Predicate names a registered predicate that must also hold.
	// Only honored by partial rules.
	Predicate string `json:"predicate,omitempty"`
}

// Empty reports whether no recognized condition is present.
func (c *ResultConditions) Empty() bool {
	return c.Rows == nil && len(c.Columns) == 0 && len(c.Values) == 0 && c.Predicate == ""
}

// DDLConditions is the rule payload for ddl_schema checks.
type DDLConditions struct {
	Inspection  *SchemaExpectation `json:"schema_inspection,omitempty"`
	TestQueries []ProbeQuery       `json:"test_queries,omitempty"`
}

// Empty reports whether neither section is present.
func (c *DDLConditions) Empty() bool {
	return c.Inspection == nil && len(c.TestQueries) == 0
}

// SchemaExpectation describes what the post-DDL schema must look like.
type SchemaExpectation struct {
	Table string `json:"table"`

	// ShouldExist defaults to true when nil. An explicit false covers
	// "drop this table" exercises: the check passes iff the table is
	// absent by name.
	ShouldExist *bool `json:"should_exist,omitempty"`

	Columns     []ExpectedColumn     `json:"columns,omitempty"`
	Constraints []ExpectedConstraint `json:"constraints,omitempty"`
	Indexes     []ExpectedIndex      `json:"indexes,omitempty"`
}

// ExpectedColumn describes one required column. Type and Nullable are only
// checked when set; types are compared through the alias table so
// VARCHAR(100) matches "character varying".
type ExpectedColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Nullable *bool  `json:"nullable,omitempty"`
}

// ExpectedConstraint describes one required constraint. At least one actual
// constraint of the same type must carry exactly this column list, in this
// order.
type ExpectedConstraint struct {
	Type    string   `json:"type"`
	Columns []string `json:"columns"`
}

// ExpectedIndex describes one required index. Name and Unique are only
// matched when set.
type ExpectedIndex struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
	Unique  *bool    `json:"unique,omitempty"`
}

// ProbeQuery is a behavioral probe run against the post-DDL database. The
// probe passes when its observed success/failure matches ShouldSucceed.
type ProbeQuery struct {
	Query         string `json:"query"`
	ShouldSucceed bool   `json:"should_succeed"`
}

// DecodeResultConditions parses a result-rule payload. A nil or empty
// payload decodes to the all-absent (vacuously passing) conditions.
func DecodeResultConditions(raw json.RawMessage) (*ResultConditions, error) {
	cond := &ResultConditions{}
	if len(raw) == 0 {
		return cond, nil
	}
	if err := json.Unmarshal(raw, cond); err != nil {
		return nil, fmt.Errorf("decode result conditions: %w", err)
	}
	return cond, nil
}

// DecodeDDLConditions parses a ddl_schema rule payload.
func DecodeDDLConditions(raw json.RawMessage) (*DDLConditions, error) {
	cond := &DDLConditions{}
	if len(raw) == 0 {
		return cond, nil
	}
	if err := json.Unmarshal(raw, cond); err != nil {
		return nil, fmt.Errorf("decode ddl conditions: %w", err)
	}
	return cond, nil
}
