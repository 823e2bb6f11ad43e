package model

// ValidationVerdict is the grading engine's output for one attempt.
type ValidationVerdict struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message,omitempty"`

	// SchemaValidation is present only for ddl_schema verdicts that
	// requested schema inspection.
	SchemaValidation *SchemaValidationResult `json:"schema_validation,omitempty"`

	// TestQueryResults is present only for ddl_schema verdicts that
	// requested probe queries.
	TestQueryResults *TestQueryReport `json:"test_query_results,omitempty"`
}

// SchemaValidationResult reports the outcome of comparing the live schema
// against an exercise's expected-schema description.
type SchemaValidationResult struct {
	Passed             bool     `json:"passed"`
	Errors             []string `json:"errors"`
	TableFound         bool     `json:"table_found"`
	ColumnsMatched     bool     `json:"columns_matched"`
	ConstraintsMatched bool     `json:"constraints_matched"`
	IndexesMatched     bool     `json:"indexes_matched"`
}

// TestQueryReport aggregates the outcomes of an exercise's probe queries.
type TestQueryReport struct {
	Passed  bool          `json:"passed"`
	Results []ProbeResult `json:"results"`
}

// ProbeResult records one probe query's expected versus observed outcome.
// Actual is false whenever the engine raised, including driver-level
// failures; Error carries the raw text for diagnostics in that case.
type ProbeResult struct {
	Query    string `json:"query"`
	Expected bool   `json:"expected"`
	Actual   bool   `json:"actual"`
	Error    string `json:"error,omitempty"`
}
