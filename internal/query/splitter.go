package query

import "strings"

// SplitStatements breaks a SQL script into individual statements on
// semicolons, honoring single-quoted strings, double-quoted identifiers,
// line comments (--) and block comments (/* */). Empty statements are
// dropped. Seed scripts and multi-statement attempts both pass through here
// so the engine only ever sees one statement at a time.
func SplitStatements(script string) []string {
	var (
		stmts   []string
		current strings.Builder
	)

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	runes := []rune(script)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case ch == '\'':
				state = stateSingleQuote
				current.WriteRune(ch)
			case ch == '"':
				state = stateDoubleQuote
				current.WriteRune(ch)
			case ch == '-' && next == '-':
				state = stateLineComment
				i++
			case ch == '/' && next == '*':
				state = stateBlockComment
				i++
			case ch == ';':
				if s := strings.TrimSpace(current.String()); s != "" {
					stmts = append(stmts, s)
				}
				current.Reset()
			default:
				current.WriteRune(ch)
			}

		case stateSingleQuote:
			current.WriteRune(ch)
			if ch == '\'' {
				// '' is an escaped quote inside the string, not a close.
				if next == '\'' {
					current.WriteRune(next)
					i++
				} else {
					state = stateNormal
				}
			}

		case stateDoubleQuote:
			current.WriteRune(ch)
			if ch == '"' {
				state = stateNormal
			}

		case stateLineComment:
			if ch == '\n' {
				state = stateNormal
				current.WriteRune(ch)
			}

		case stateBlockComment:
			if ch == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}

// Kind is the coarse classification of a SQL statement.
type Kind string

const (
	KindQuery Kind = "query" // SELECT and WITH
	KindWrite Kind = "write" // INSERT, UPDATE, DELETE
	KindDDL   Kind = "ddl"   // CREATE, ALTER, DROP, TRUNCATE
	KindOther Kind = "other"
)

// KindOf reports the coarse kind of a statement from its leading keyword.
// Used to decide whether a snapshot must be refreshed after execution.
func KindOf(stmt string) Kind {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return KindOther
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
		return KindQuery
	case "INSERT", "UPDATE", "DELETE":
		return KindWrite
	case "CREATE", "ALTER", "DROP", "TRUNCATE":
		return KindDDL
	default:
		return KindOther
	}
}
