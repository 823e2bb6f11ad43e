package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqldrill/sqldrill/internal/model"
)

// Classification is the user-facing rendering of an execution error: a
// short, specific message plus (where available) a corrective example. Raw
// engine text and stack traces never reach the student.
type Classification struct {
	Message string `json:"message"`
	Example string `json:"example,omitempty"`
}

// errorRule is one entry in the ordered classification list. Rules are pure
// functions so each can be tested in isolation; extraction failures fall
// back to an empty token, never a panic.
type errorRule struct {
	name  string
	match func(lower string) bool
	build func(raw string, snap *model.SchemaSnapshot) Classification
}

var (
	nearTokenRe = regexp.MustCompile(`near "([^"]*)"`)
	// Postgres: relation "users" does not exist
	pgMissingTableRe = regexp.MustCompile(`relation "([^"]+)" does not exist`)
	// SQLite: no such table: users
	liteMissingTableRe = regexp.MustCompile(`no such table:?\s*([\w.]+)`)
	// MySQL: Table 'db.users' doesn't exist
	myMissingTableRe = regexp.MustCompile(`table '([^']+)' doesn't exist`)
	// Postgres: column "nam" does not exist
	pgMissingColumnRe = regexp.MustCompile(`column "([^"]+)" does not exist`)
	// SQLite: no such column: nam
	liteMissingColumnRe = regexp.MustCompile(`no such column:?\s*([\w.]+)`)
	// MySQL: Unknown column 'nam' in 'field list'
	myMissingColumnRe = regexp.MustCompile(`unknown column '([^']+)'`)
)

// classifyRules is tried in order; the first match wins.
var classifyRules = []errorRule{
	{
		name: "syntax",
		match: func(lower string) bool {
			return strings.Contains(lower, "syntax error") ||
				strings.Contains(lower, "error in your sql syntax")
		},
		build: func(raw string, _ *model.SchemaSnapshot) Classification {
			token := extractFirst(nearTokenRe, raw)
			msg := "There is a syntax error in your query."
			if token != "" {
				msg = fmt.Sprintf("There is a syntax error in your query near %q.", token)
			}
			return Classification{
				Message: msg + " Check keyword spelling and clause order.",
				Example: "SELECT * FROM users;\nSELECT name, email FROM users WHERE id = 1;",
			}
		},
	},
	{
		name: "missing-table",
		match: func(lower string) bool {
			return pgMissingTableRe.MatchString(lower) ||
				liteMissingTableRe.MatchString(lower) ||
				myMissingTableRe.MatchString(lower)
		},
		build: func(raw string, snap *model.SchemaSnapshot) Classification {
			lower := strings.ToLower(raw)
			table := extractFirst(pgMissingTableRe, lower)
			if table == "" {
				table = extractFirst(liteMissingTableRe, lower)
			}
			if table == "" {
				table = extractFirst(myMissingTableRe, lower)
			}
			// MySQL reports db.table; keep the table part.
			if i := strings.LastIndexByte(table, '.'); i >= 0 {
				table = table[i+1:]
			}

			msg := fmt.Sprintf("The table %q does not exist.", table)
			if table == "" {
				msg = "The table you referenced does not exist."
			}
			if names := snap.TableNames(); len(names) > 0 {
				msg += " Available tables: " + strings.Join(names, ", ") + "."
			}
			return Classification{Message: msg}
		},
	},
	{
		name: "missing-column",
		match: func(lower string) bool {
			return pgMissingColumnRe.MatchString(lower) ||
				liteMissingColumnRe.MatchString(lower) ||
				myMissingColumnRe.MatchString(lower)
		},
		build: func(raw string, snap *model.SchemaSnapshot) Classification {
			lower := strings.ToLower(raw)
			column := extractFirst(pgMissingColumnRe, lower)
			if column == "" {
				column = extractFirst(liteMissingColumnRe, lower)
			}
			if column == "" {
				column = extractFirst(myMissingColumnRe, lower)
			}

			msg := fmt.Sprintf("The column %q does not exist.", column)
			if column == "" {
				msg = "The column you referenced does not exist."
			}
			if snap != nil && len(snap.Tables) > 0 {
				var parts []string
				for _, t := range snap.Tables {
					cols := make([]string, len(t.Columns))
					for i, c := range t.Columns {
						cols[i] = c.Name
					}
					parts = append(parts, fmt.Sprintf("%s (%s)", t.Name, strings.Join(cols, ", ")))
				}
				msg += " Known columns: " + strings.Join(parts, "; ") + "."
			}
			return Classification{Message: msg}
		},
	},
	{
		name: "group-by",
		match: func(lower string) bool {
			return strings.Contains(lower, "must appear in the group by clause") ||
				strings.Contains(lower, "misuse of aggregate") ||
				strings.Contains(lower, "invalid use of group function") ||
				strings.Contains(lower, "not in group by")
		},
		build: func(_ string, _ *model.SchemaSnapshot) Classification {
			return Classification{
				Message: "Every selected column that is not aggregated must appear in the GROUP BY clause.",
				Example: "SELECT department, COUNT(*) FROM employees GROUP BY department;",
			}
		},
	},
}

// Classify maps a raw execution error onto a teachable message. Rules are
// tried in a fixed order; when none matches, a generic fallback is
// returned. The snapshot, when available, supplies the known table and
// column names mentioned in the diagnostics.
func Classify(err error, snap *model.SchemaSnapshot) Classification {
	if err == nil {
		return Classification{}
	}

	raw := err.Error()
	lower := strings.ToLower(raw)

	for _, rule := range classifyRules {
		if rule.match(lower) {
			return rule.build(raw, snap)
		}
	}

	return Classification{
		Message: "The query could not be executed. Check your syntax and that all table and column names are spelled correctly.",
	}
}

// extractFirst returns the first capture group of the pattern, or "" when
// the pattern does not match.
func extractFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
