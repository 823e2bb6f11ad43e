package validate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sqldrill/sqldrill/internal/model"
)

// fakeTarget serves canned snapshots and scripted probe outcomes.
type fakeTarget struct {
	snap       *model.SchemaSnapshot
	inspectErr error

	executed []string
	failOn   map[string]string // query -> error text
}

func (f *fakeTarget) InspectSchema(ctx context.Context) (*model.SchemaSnapshot, error) {
	if f.inspectErr != nil {
		return nil, f.inspectErr
	}
	return f.snap, nil
}

func (f *fakeTarget) Execute(ctx context.Context, stmt string) (*model.QueryResult, error) {
	f.executed = append(f.executed, stmt)
	if msg, ok := f.failOn[stmt]; ok {
		return nil, errors.New(msg)
	}
	return &model.QueryResult{Rows: []model.Row{}, Fields: []model.Field{}}, nil
}

func usersSnapshot() *model.SchemaSnapshot {
	return &model.SchemaSnapshot{Tables: []model.TableInfo{
		{
			Name: "users",
			Columns: []model.ColumnInfo{
				{Name: "id", Type: "int4", Nullable: false},
				{Name: "email", Type: "varchar", Nullable: true},
			},
			Constraints: []model.ConstraintInfo{
				{Name: "users_pkey", Type: model.ConstraintPrimaryKey, Columns: []string{"id"}},
				{Name: "users_email_key", Type: model.ConstraintUnique, Columns: []string{"email"}},
			},
			Indexes: []model.IndexInfo{
				{Name: "users_email_key", Columns: []string{"email"}, IsUnique: true},
			},
		},
	}}
}

func TestValidateSchemaTableFound(t *testing.T) {
	res := ValidateSchema(usersSnapshot(), &SchemaExpectation{Table: "USERS"})
	if !res.Passed || !res.TableFound {
		t.Errorf("case-insensitive table lookup should pass: %+v", res)
	}
}

func TestValidateSchemaTableMissingShortCircuits(t *testing.T) {
	want := &SchemaExpectation{
		Table:   "orders",
		Columns: []ExpectedColumn{{Name: "id"}},
	}
	res := ValidateSchema(usersSnapshot(), want)

	if res.Passed || res.TableFound {
		t.Error("missing table must fail")
	}
	if len(res.Errors) != 1 {
		t.Errorf("missing table should produce exactly one error, got %v", res.Errors)
	}
	if res.ColumnsMatched {
		t.Error("column checks cannot match when the table is absent")
	}
}

func TestValidateSchemaShouldNotExist(t *testing.T) {
	gone := &SchemaExpectation{Table: "old_logs", ShouldExist: boolPtr(false)}
	if res := ValidateSchema(usersSnapshot(), gone); !res.Passed {
		t.Errorf("absent table with should_exist=false must pass: %+v", res)
	}

	still := &SchemaExpectation{Table: "users", ShouldExist: boolPtr(false)}
	res := ValidateSchema(usersSnapshot(), still)
	if res.Passed {
		t.Error("a table that still exists must fail should_exist=false")
	}
	if len(res.Errors) == 0 {
		t.Error("expected a descriptive error")
	}
}

func TestValidateSchemaColumnTypeNormalization(t *testing.T) {
	// The catalog reports varchar; the expectation is authored as
	// VARCHAR(255). The alias table must absorb the difference.
	want := &SchemaExpectation{
		Table: "users",
		Columns: []ExpectedColumn{
			{Name: "email", Type: "VARCHAR(255)"},
			{Name: "id", Type: "INTEGER"},
		},
	}
	if res := ValidateSchema(usersSnapshot(), want); !res.Passed {
		t.Errorf("alias-equivalent types should pass: %v", res.Errors)
	}

	mismatch := &SchemaExpectation{
		Table:   "users",
		Columns: []ExpectedColumn{{Name: "email", Type: "integer"}},
	}
	res := ValidateSchema(usersSnapshot(), mismatch)
	if res.Passed || res.ColumnsMatched {
		t.Error("a type mismatch must fail")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %v", res.Errors)
	}
	// The error must name both the actual and the expected type.
	if !contains(res.Errors[0], "varchar") || !contains(res.Errors[0], "integer") {
		t.Errorf("error should name both types: %q", res.Errors[0])
	}
}

func TestValidateSchemaNullability(t *testing.T) {
	want := &SchemaExpectation{
		Table:   "users",
		Columns: []ExpectedColumn{{Name: "id", Nullable: boolPtr(true)}},
	}
	if res := ValidateSchema(usersSnapshot(), want); res.Passed {
		t.Error("nullable mismatch must fail when specified")
	}

	unspecified := &SchemaExpectation{
		Table:   "users",
		Columns: []ExpectedColumn{{Name: "id"}},
	}
	if res := ValidateSchema(usersSnapshot(), unspecified); !res.Passed {
		t.Error("unspecified nullability must not be checked")
	}
}

func TestValidateSchemaConstraintColumnOrder(t *testing.T) {
	snap := &model.SchemaSnapshot{Tables: []model.TableInfo{
		{
			Name:    "grades",
			Columns: []model.ColumnInfo{{Name: "a"}, {Name: "b"}},
			Constraints: []model.ConstraintInfo{
				{Name: "grades_pkey", Type: model.ConstraintPrimaryKey, Columns: []string{"b", "a"}},
			},
		},
	}}

	ordered := &SchemaExpectation{
		Table:       "grades",
		Constraints: []ExpectedConstraint{{Type: "PRIMARY KEY", Columns: []string{"a", "b"}}},
	}
	if res := ValidateSchema(snap, ordered); res.Passed {
		t.Error("PRIMARY KEY (a,b) must not match a key ordered (b,a)")
	}

	matching := &SchemaExpectation{
		Table:       "grades",
		Constraints: []ExpectedConstraint{{Type: "primary key", Columns: []string{"B", "A"}}},
	}
	if res := ValidateSchema(snap, matching); !res.Passed {
		t.Errorf("case differences in type and columns must not matter: %v", res.Errors)
	}
}

func TestValidateSchemaConstraintMissingType(t *testing.T) {
	want := &SchemaExpectation{
		Table:       "users",
		Constraints: []ExpectedConstraint{{Type: "FOREIGN KEY", Columns: []string{"org_id"}}},
	}
	res := ValidateSchema(usersSnapshot(), want)
	if res.Passed || res.ConstraintsMatched {
		t.Error("a missing constraint type must fail")
	}
}

func TestValidateSchemaIndex(t *testing.T) {
	byColumns := &SchemaExpectation{
		Table:   "users",
		Indexes: []ExpectedIndex{{Columns: []string{"email"}, Unique: boolPtr(true)}},
	}
	if res := ValidateSchema(usersSnapshot(), byColumns); !res.Passed {
		t.Errorf("unique index on email should match: %v", res.Errors)
	}

	byName := &SchemaExpectation{
		Table:   "users",
		Indexes: []ExpectedIndex{{Name: "users_email_key", Columns: []string{"email"}}},
	}
	if res := ValidateSchema(usersSnapshot(), byName); !res.Passed {
		t.Errorf("index matched by name should pass: %v", res.Errors)
	}

	wrongName := &SchemaExpectation{
		Table:   "users",
		Indexes: []ExpectedIndex{{Name: "idx_other", Columns: []string{"email"}}},
	}
	if res := ValidateSchema(usersSnapshot(), wrongName); res.Passed {
		t.Error("a named expectation must not match a differently named index")
	}
}

func TestValidateSchemaAccumulatesErrors(t *testing.T) {
	want := &SchemaExpectation{
		Table: "users",
		Columns: []ExpectedColumn{
			{Name: "email", Type: "integer"},
			{Name: "missing_col"},
		},
		Constraints: []ExpectedConstraint{{Type: "CHECK", Columns: nil}},
	}
	res := ValidateSchema(usersSnapshot(), want)
	if res.Passed {
		t.Error("expected failure")
	}
	if len(res.Errors) != 3 {
		t.Errorf("expected 3 accumulated errors, got %d: %v", len(res.Errors), res.Errors)
	}
}

func TestRunProbesExpectationMatrix(t *testing.T) {
	target := &fakeTarget{failOn: map[string]string{
		"INSERT INTO u VALUES (1, 'a@x')": "UNIQUE constraint failed: u.email",
	}}

	// insert-valid expects success, insert-duplicate expects failure.
	probes := []ProbeQuery{
		{Query: "INSERT INTO u VALUES (0, 'b@x')", ShouldSucceed: true},
		{Query: "INSERT INTO u VALUES (1, 'a@x')", ShouldSucceed: false},
	}
	report := RunProbes(context.Background(), target, probes)
	if !report.Passed {
		t.Errorf("matching expectations should pass: %+v", report.Results)
	}
	if report.Results[1].Error == "" {
		t.Error("the failed probe should capture the error text")
	}

	// Swapped expectations must fail.
	swapped := []ProbeQuery{
		{Query: "INSERT INTO u VALUES (0, 'b@x')", ShouldSucceed: false},
		{Query: "INSERT INTO u VALUES (1, 'a@x')", ShouldSucceed: true},
	}
	if report := RunProbes(context.Background(), target, swapped); report.Passed {
		t.Error("swapped expectations must fail")
	}
}

func TestRunProbesAllRunDespiteFailures(t *testing.T) {
	target := &fakeTarget{failOn: map[string]string{"q1": "boom"}}
	probes := []ProbeQuery{
		{Query: "q1", ShouldSucceed: true},
		{Query: "q2", ShouldSucceed: true},
		{Query: "q3", ShouldSucceed: true},
	}
	report := RunProbes(context.Background(), target, probes)
	if len(target.executed) != 3 {
		t.Errorf("all probes must run, got %d", len(target.executed))
	}
	if len(report.Results) != 3 {
		t.Errorf("all probes must be reported, got %d", len(report.Results))
	}
	if report.Passed {
		t.Error("a mispredicted probe must fail the report")
	}
}

func TestRunProbesPreserveOrder(t *testing.T) {
	target := &fakeTarget{}
	probes := []ProbeQuery{
		{Query: "first", ShouldSucceed: true},
		{Query: "second", ShouldSucceed: true},
	}
	RunProbes(context.Background(), target, probes)
	if target.executed[0] != "first" || target.executed[1] != "second" {
		t.Errorf("probes must run in order: %v", target.executed)
	}
}

func TestValidateDDLCombinesSections(t *testing.T) {
	target := &fakeTarget{snap: usersSnapshot()}
	cond := &DDLConditions{
		Inspection: &SchemaExpectation{Table: "users"},
		TestQueries: []ProbeQuery{
			{Query: "SELECT 1", ShouldSucceed: true},
		},
	}

	verdict := ValidateDDL(context.Background(), target, target, cond)
	if !verdict.IsValid {
		t.Errorf("both sections pass, verdict should be valid: %+v", verdict)
	}
	if verdict.SchemaValidation == nil || verdict.TestQueryResults == nil {
		t.Fatal("both sections should be reported")
	}

	// A failing probe flips the whole verdict even when inspection passes.
	target.failOn = map[string]string{"SELECT 1": "boom"}
	verdict = ValidateDDL(context.Background(), target, target, cond)
	if verdict.IsValid {
		t.Error("a failed probe section must invalidate the verdict")
	}
	if !verdict.SchemaValidation.Passed {
		t.Error("the schema section should still pass")
	}
}

func TestValidateDDLVacuousConfig(t *testing.T) {
	target := &fakeTarget{snap: usersSnapshot()}
	verdict := ValidateDDL(context.Background(), target, target, &DDLConditions{})
	if !verdict.IsValid {
		t.Error("a config with neither section is vacuously valid")
	}
	if verdict.SchemaValidation != nil || verdict.TestQueryResults != nil {
		t.Error("unrequested sections must not be reported")
	}
}

func TestValidateDDLInspectionFailureReadsAsNotFound(t *testing.T) {
	target := &fakeTarget{inspectErr: errors.New("catalog is broken")}
	cond := &DDLConditions{Inspection: &SchemaExpectation{Table: "users"}}

	verdict := ValidateDDL(context.Background(), target, target, cond)
	if verdict.IsValid {
		t.Error("expected failure")
	}
	if verdict.SchemaValidation.TableFound {
		t.Error("a broken catalog must read as table-not-found")
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
