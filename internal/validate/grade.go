package validate

import (
	"context"
	"fmt"

	"github.com/sqldrill/sqldrill/internal/model"
)

// Target is the live session surface the orchestrator grades against:
// schema introspection for ddl exercises and statement execution for probe
// queries.
type Target interface {
	Inspector
	Executor
}

// Default messages when an exercise does not author its own.
const (
	defaultSuccessMessage  = "Correct! Your query does exactly what the exercise asked for."
	defaultFailureMessage  = "Your query ran, but its result is not what the exercise expects. Compare your output with the exercise description and try again."
	executionFailedMessage = "Your query could not be executed."
)

// Grader selects and runs the right validator for an exercise attempt.
type Grader struct {
	preds *PredicateRegistry
}

// NewGrader creates a Grader using the given predicate registry. A nil
// registry is allowed; partial rules naming a predicate then fail closed.
func NewGrader(preds *PredicateRegistry) *Grader {
	return &Grader{preds: preds}
}

// Grade produces the verdict for one attempt. A result carrying an
// execution error short-circuits to a failing verdict: a failed execution
// is never partially correct, and its diagnostic comes from Classify, not
// from here. DDL exercises re-inspect and probe the live session; DML
// exercises are judged on the result alone.
func (g *Grader) Grade(ctx context.Context, target Target, ex *model.Exercise, res *model.QueryResult) (*model.ValidationVerdict, error) {
	if res != nil && res.Error {
		return &model.ValidationVerdict{
			IsValid: false,
			Message: executionFailedMessage,
		}, nil
	}

	if ex.Type == model.ExerciseDDL {
		cond, err := DecodeDDLConditions(ex.Validation.Conditions)
		if err != nil {
			return nil, fmt.Errorf("exercise %s: %w", ex.ID, err)
		}
		verdict := ValidateDDL(ctx, target, target, cond)
		verdict.Message = g.message(ex, verdict.IsValid)
		return verdict, nil
	}

	cond, err := DecodeResultConditions(ex.Validation.Conditions)
	if err != nil {
		return nil, fmt.Errorf("exercise %s: %w", ex.ID, err)
	}

	ok := ValidateResult(res, ex.Validation.Kind, cond, g.preds)
	return &model.ValidationVerdict{
		IsValid: ok,
		Message: g.message(ex, ok),
	}, nil
}

func (g *Grader) message(ex *model.Exercise, passed bool) string {
	if passed {
		if ex.SuccessMessage != "" {
			return ex.SuccessMessage
		}
		return defaultSuccessMessage
	}
	return defaultFailureMessage
}
