package validate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sqldrill/sqldrill/internal/model"
)

func exactExercise(t *testing.T, cond ResultConditions) *model.Exercise {
	t.Helper()
	raw, err := json.Marshal(cond)
	if err != nil {
		t.Fatal(err)
	}
	return &model.Exercise{
		ID:   "ex-1",
		Type: model.ExerciseDML,
		Validation: model.Validation{
			Kind:       model.ValidationExact,
			Conditions: raw,
		},
	}
}

func TestGradeErroredResultShortCircuits(t *testing.T) {
	g := NewGrader(nil)
	ex := exactExercise(t, ResultConditions{Rows: intPtr(1)})
	res := &model.QueryResult{Error: true, Message: "boom"}

	verdict, err := g.Grade(context.Background(), &fakeTarget{}, ex, res)
	if err != nil {
		t.Fatal(err)
	}
	if verdict.IsValid {
		t.Error("an errored result must fail regardless of conditions")
	}
	if verdict.Message != executionFailedMessage {
		t.Errorf("unexpected message %q", verdict.Message)
	}
}

func TestGradeExactPass(t *testing.T) {
	g := NewGrader(nil)
	ex := exactExercise(t, ResultConditions{Rows: intPtr(1), Columns: []string{"id"}})
	ex.SuccessMessage = "Nice filtering!"
	res := resultWith([]string{"id"}, model.Row{"id": int64(7)})

	verdict, err := g.Grade(context.Background(), &fakeTarget{}, ex, res)
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.IsValid {
		t.Fatal("expected a passing verdict")
	}
	if verdict.Message != "Nice filtering!" {
		t.Errorf("expected the exercise success message, got %q", verdict.Message)
	}
}

func TestGradeExactFailUsesDefaultMessage(t *testing.T) {
	g := NewGrader(nil)
	ex := exactExercise(t, ResultConditions{Rows: intPtr(2)})
	res := resultWith([]string{"id"}, model.Row{"id": int64(7)})

	verdict, err := g.Grade(context.Background(), &fakeTarget{}, ex, res)
	if err != nil {
		t.Fatal(err)
	}
	if verdict.IsValid {
		t.Fatal("expected a failing verdict")
	}
	if verdict.Message != defaultFailureMessage {
		t.Errorf("expected the default failure message, got %q", verdict.Message)
	}
}

func TestGradePartialUsesPredicateRegistry(t *testing.T) {
	preds := NewPredicateRegistry()
	preds.Register("has-rows", func(res *model.QueryResult) bool {
		return len(res.Rows) > 0
	})
	g := NewGrader(preds)

	raw, err := json.Marshal(ResultConditions{Predicate: "has-rows"})
	if err != nil {
		t.Fatal(err)
	}
	ex := &model.Exercise{
		ID:   "ex-2",
		Type: model.ExerciseDML,
		Validation: model.Validation{
			Kind:       model.ValidationPartial,
			Conditions: raw,
		},
	}

	verdict, err := g.Grade(context.Background(), &fakeTarget{},
		ex, resultWith([]string{"id"}, model.Row{"id": int64(1)}))
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.IsValid {
		t.Error("expected the registered predicate to pass")
	}

	verdict, err = g.Grade(context.Background(), &fakeTarget{}, ex, resultWith([]string{"id"}))
	if err != nil {
		t.Fatal(err)
	}
	if verdict.IsValid {
		t.Error("expected an empty result to fail the predicate")
	}
}

func TestGradeDDLInspectsAndProbes(t *testing.T) {
	g := NewGrader(nil)
	cond := DDLConditions{
		Inspection: &SchemaExpectation{
			Table: "users",
			Columns: []ExpectedColumn{
				{Name: "id", Type: "integer"},
			},
		},
		TestQueries: []ProbeQuery{
			{Query: "INSERT INTO users (id, email) VALUES (1, 'a@x')", ShouldSucceed: true},
		},
	}
	raw, err := json.Marshal(cond)
	if err != nil {
		t.Fatal(err)
	}
	ex := &model.Exercise{
		ID:   "ex-3",
		Type: model.ExerciseDDL,
		Validation: model.Validation{
			Kind:       model.ValidationDDLSchema,
			Conditions: raw,
		},
	}

	target := &fakeTarget{snap: usersSnapshot()}
	verdict, err := g.Grade(context.Background(), target, ex, &model.QueryResult{})
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.IsValid {
		t.Fatalf("expected the ddl verdict to pass: %+v", verdict.SchemaValidation)
	}
	if verdict.SchemaValidation == nil || !verdict.SchemaValidation.TableFound {
		t.Error("expected schema detail on a ddl verdict")
	}
	if verdict.TestQueryResults == nil || len(verdict.TestQueryResults.Results) != 1 {
		t.Error("expected one probe result on a ddl verdict")
	}
	if len(target.executed) != 1 {
		t.Errorf("expected the probe to run once, ran %d times", len(target.executed))
	}
}

func TestGradeDDLFailureMessage(t *testing.T) {
	g := NewGrader(nil)
	cond := DDLConditions{
		Inspection: &SchemaExpectation{Table: "missing"},
	}
	raw, err := json.Marshal(cond)
	if err != nil {
		t.Fatal(err)
	}
	ex := &model.Exercise{
		ID:   "ex-4",
		Type: model.ExerciseDDL,
		Validation: model.Validation{
			Kind:       model.ValidationDDLSchema,
			Conditions: raw,
		},
	}

	verdict, err := g.Grade(context.Background(), &fakeTarget{snap: usersSnapshot()}, ex, &model.QueryResult{})
	if err != nil {
		t.Fatal(err)
	}
	if verdict.IsValid {
		t.Fatal("expected a failing verdict for a missing table")
	}
	if verdict.Message != defaultFailureMessage {
		t.Errorf("expected the default failure message, got %q", verdict.Message)
	}
}

func TestGradeMalformedConditions(t *testing.T) {
	g := NewGrader(nil)
	ex := &model.Exercise{
		ID:   "ex-5",
		Type: model.ExerciseDML,
		Validation: model.Validation{
			Kind:       model.ValidationExact,
			Conditions: json.RawMessage(`{"rows": "two"}`),
		},
	}

	if _, err := g.Grade(context.Background(), &fakeTarget{}, ex, resultWith(nil)); err == nil {
		t.Error("malformed conditions should surface as an error")
	}
}
