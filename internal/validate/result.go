package validate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sqldrill/sqldrill/internal/model"
)

// ValidateResult decides pass/fail for a data-query exercise. All present
// sub-conditions must hold; absent ones are vacuously satisfied. Unknown
// kinds fail closed.
func ValidateResult(res *model.QueryResult, kind model.ValidationKind, cond *ResultConditions, preds *PredicateRegistry) bool {
	if res == nil || res.Error {
		return false
	}
	if cond == nil {
		cond = &ResultConditions{}
	}

	switch kind {
	case model.ValidationExact:
		if cond.Rows != nil && len(res.Rows) != *cond.Rows {
			return false
		}
		if !hasColumns(res, cond.Columns) {
			return false
		}
		return matchValues(res, cond.Values)

	case model.ValidationPartial:
		if !hasColumns(res, cond.Columns) {
			return false
		}
		if cond.Predicate != "" {
			if preds == nil {
				return false
			}
			p, ok := preds.Get(cond.Predicate)
			if !ok {
				// A rule naming a predicate that was never compiled in
				// must not silently pass.
				return false
			}
			return p(res)
		}
		return true

	default:
		return false
	}
}

// hasColumns checks the subset-column rule: every required column must be
// present among the result fields; extras are tolerated.
func hasColumns(res *model.QueryResult, required []string) bool {
	for _, name := range required {
		if !res.HasField(name) {
			return false
		}
	}
	return true
}

// matchValues checks the positional value rule: the row at index i must
// contain every key/value pair of expected[i]. Rows beyond the expected
// list are unconstrained; an expected entry past the end of the result
// fails.
func matchValues(res *model.QueryResult, expected []map[string]interface{}) bool {
	for i, want := range expected {
		if i >= len(res.Rows) {
			return false
		}
		row := res.Rows[i]
		for col, wantVal := range want {
			gotVal, ok := row[col]
			if !ok {
				return false
			}
			if !looseEqual(gotVal, wantVal) {
				return false
			}
		}
	}
	return true
}

// looseEqual compares a database value against an expected value from the
// rule payload. Rules arrive from JSON/YAML (float64, int, string, bool)
// while drivers return int64, float64, string, bool, or time.Time, so
// numeric values compare by magnitude and everything else falls back to
// string rendering.
func looseEqual(got, want interface{}) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}

	if gf, gok := toFloat(got); gok {
		if wf, wok := toFloat(want); wok {
			return gf == wf
		}
	}

	if gb, gok := got.(bool); gok {
		if wb, wok := want.(bool); wok {
			return gb == wb
		}
	}

	return render(got) == render(want)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func render(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(x)
	default:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return fmt.Sprint(v)
	}
}
