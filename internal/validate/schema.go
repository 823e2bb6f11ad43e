package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqldrill/sqldrill/internal/model"
)

// Inspector produces schema snapshots of the live practice database.
type Inspector interface {
	InspectSchema(ctx context.Context) (*model.SchemaSnapshot, error)
}

// Executor runs probe queries against the live practice database.
type Executor interface {
	Execute(ctx context.Context, stmt string) (*model.QueryResult, error)
}

// ValidateDDL grades a schema-mutation exercise: it compares a fresh schema
// snapshot against the expected description and runs the behavioral probes,
// in that order. The verdict is the AND of whichever sections the rule
// requests; a rule with neither section is vacuously valid.
func ValidateDDL(ctx context.Context, ins Inspector, exec Executor, cond *DDLConditions) *model.ValidationVerdict {
	verdict := &model.ValidationVerdict{IsValid: true}
	if cond == nil {
		return verdict
	}

	if cond.Inspection != nil {
		snap, err := ins.InspectSchema(ctx)
		if err != nil {
			// A broken catalog reads as an empty database: the table
			// checks below report "not found" instead of crashing the
			// orchestrator.
			snap = &model.SchemaSnapshot{}
		}
		sv := ValidateSchema(snap, cond.Inspection)
		verdict.SchemaValidation = sv
		verdict.IsValid = verdict.IsValid && sv.Passed
	}

	if len(cond.TestQueries) > 0 {
		report := RunProbes(ctx, exec, cond.TestQueries)
		verdict.TestQueryResults = report
		verdict.IsValid = verdict.IsValid && report.Passed
	}

	return verdict
}

// ValidateSchema compares a snapshot against an expected-schema description,
// accumulating every mismatch into the result's error list. Passed is true
// iff the list is empty and the existence check holds.
func ValidateSchema(snap *model.SchemaSnapshot, want *SchemaExpectation) *model.SchemaValidationResult {
	res := &model.SchemaValidationResult{
		Errors:             []string{},
		ColumnsMatched:     true,
		ConstraintsMatched: true,
		IndexesMatched:     true,
	}

	tbl := snap.Table(want.Table)
	res.TableFound = tbl != nil

	// Drop-table exercises: pass iff the table is nominally absent.
	if want.ShouldExist != nil && !*want.ShouldExist {
		if tbl != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("table %q still exists", want.Table))
		}
		res.Passed = tbl == nil
		return res
	}

	if tbl == nil {
		res.Errors = append(res.Errors, fmt.Sprintf("table %q not found", want.Table))
		res.ColumnsMatched = false
		res.ConstraintsMatched = false
		res.IndexesMatched = false
		return res
	}

	for _, wc := range want.Columns {
		if !checkColumn(tbl, wc, res) {
			res.ColumnsMatched = false
		}
	}
	for _, wc := range want.Constraints {
		if !checkConstraint(tbl, wc, res) {
			res.ConstraintsMatched = false
		}
	}
	for _, wi := range want.Indexes {
		if !checkIndex(tbl, wi, res) {
			res.IndexesMatched = false
		}
	}

	res.Passed = len(res.Errors) == 0
	return res
}

func checkColumn(tbl *model.TableInfo, want ExpectedColumn, res *model.SchemaValidationResult) bool {
	col := tbl.Column(want.Name)
	if col == nil {
		res.Errors = append(res.Errors,
			fmt.Sprintf("column %q not found on table %q", want.Name, tbl.Name))
		return false
	}

	ok := true
	if want.Type != "" && !TypesEquivalent(col.Type, want.Type) {
		res.Errors = append(res.Errors,
			fmt.Sprintf("column %q has type %q, expected %q", want.Name, col.Type, want.Type))
		ok = false
	}
	if want.Nullable != nil && col.Nullable != *want.Nullable {
		res.Errors = append(res.Errors,
			fmt.Sprintf("column %q nullable=%v, expected %v", want.Name, col.Nullable, *want.Nullable))
		ok = false
	}
	return ok
}

// checkConstraint passes when at least one actual constraint of the same
// type carries exactly the expected column list. The comparison is
// order-sensitive: a composite key (a,b) does not satisfy an expectation
// of (b,a).
func checkConstraint(tbl *model.TableInfo, want ExpectedConstraint, res *model.SchemaValidationResult) bool {
	kind := model.ConstraintType(strings.ToUpper(strings.TrimSpace(want.Type)))
	actual := tbl.ConstraintsOfType(kind)
	if len(actual) == 0 {
		res.Errors = append(res.Errors,
			fmt.Sprintf("no %s constraint found on table %q", kind, tbl.Name))
		return false
	}

	for _, c := range actual {
		if sameColumns(c.Columns, want.Columns) {
			return true
		}
	}
	res.Errors = append(res.Errors,
		fmt.Sprintf("no %s constraint on table %q covers columns (%s)",
			kind, tbl.Name, strings.Join(want.Columns, ", ")))
	return false
}

func checkIndex(tbl *model.TableInfo, want ExpectedIndex, res *model.SchemaValidationResult) bool {
	for _, idx := range tbl.Indexes {
		if want.Name != "" && !strings.EqualFold(idx.Name, want.Name) {
			continue
		}
		if !sameColumns(idx.Columns, want.Columns) {
			continue
		}
		if want.Unique != nil && idx.IsUnique != *want.Unique {
			continue
		}
		return true
	}

	desc := strings.Join(want.Columns, ", ")
	if want.Name != "" {
		desc = want.Name + " (" + desc + ")"
	}
	res.Errors = append(res.Errors,
		fmt.Sprintf("no matching index %s on table %q", desc, tbl.Name))
	return false
}

// sameColumns compares column lists positionally after lowercasing.
func sameColumns(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if !strings.EqualFold(actual[i], expected[i]) {
			return false
		}
	}
	return true
}

// RunProbes executes every probe in order against the live session and
// records whether each succeeded or failed as predicted. A probe's failure
// never aborts the batch: later probes may depend on the side effects of
// earlier ones, so all probes always run to completion.
func RunProbes(ctx context.Context, exec Executor, probes []ProbeQuery) *model.TestQueryReport {
	report := &model.TestQueryReport{
		Passed:  true,
		Results: make([]model.ProbeResult, 0, len(probes)),
	}

	for _, probe := range probes {
		pr := model.ProbeResult{
			Query:    probe.Query,
			Expected: probe.ShouldSucceed,
		}

		_, err := exec.Execute(ctx, probe.Query)
		if err != nil {
			pr.Actual = false
			pr.Error = err.Error()
		} else {
			pr.Actual = true
		}

		if pr.Actual != pr.Expected {
			report.Passed = false
		}
		report.Results = append(report.Results, pr)
	}

	return report
}
