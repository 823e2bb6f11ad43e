package validate

import "github.com/sqldrill/sqldrill/internal/model"

// DefaultPredicates returns a registry holding the predicates built into
// this binary. Exercise content referring to a predicate not present here
// fails closed until the predicate is compiled in; `exercise lint` reports
// such references before they reach learners.
func DefaultPredicates() *PredicateRegistry {
	r := NewPredicateRegistry()

	r.Register("non-empty", func(res *model.QueryResult) bool {
		return len(res.Rows) > 0
	})

	r.Register("single-row", func(res *model.QueryResult) bool {
		return len(res.Rows) == 1
	})

	r.Register("no-null-values", func(res *model.QueryResult) bool {
		for _, row := range res.Rows {
			for _, v := range row {
				if v == nil {
					return false
				}
			}
		}
		return true
	})

	r.Register("distinct-rows", func(res *model.QueryResult) bool {
		seen := make(map[string]bool, len(res.Rows))
		for _, row := range res.Rows {
			key := ""
			for _, f := range res.Fields {
				key += render(row[f.Name]) + "\x1f"
			}
			if seen[key] {
				return false
			}
			seen[key] = true
		}
		return true
	})

	return r
}
