package model

import (
	"encoding/json"
	"time"
)

// Difficulty is the ordered difficulty tier of an exercise.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// Rank returns the sort position of a difficulty tier. Unknown values sort
// last so malformed content stays visible instead of disappearing.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyBeginner:
		return 0
	case DifficultyIntermediate:
		return 1
	case DifficultyAdvanced:
		return 2
	}
	return 3
}

// ValidDifficulty returns true if d is a recognized difficulty tier.
func ValidDifficulty(d string) bool {
	switch Difficulty(d) {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// ExerciseType selects which validator grades an exercise.
type ExerciseType string

const (
	// ExerciseDML exercises are graded by inspecting the query's result set.
	ExerciseDML ExerciseType = "dml"
	// ExerciseDDL exercises are graded by inspecting the resulting schema
	// and/or probing behavior with test queries.
	ExerciseDDL ExerciseType = "ddl"
)

// ValidationKind tags the rule grammar used by an exercise's validation
// payload.
type ValidationKind string

const (
	// ValidationExact checks row count, required columns, and positional
	// row values. Row order matters when values are specified.
	ValidationExact ValidationKind = "exact"
	// ValidationPartial checks required columns and/or a named predicate.
	// Row count and order are unconstrained.
	ValidationPartial ValidationKind = "partial"
	// ValidationDDLSchema checks the post-DDL schema and runs probe queries.
	ValidationDDLSchema ValidationKind = "ddl_schema"
)

// Validation is the declarative grading rule attached to an exercise. The
// conditions payload is type-tagged and opaque at this level; each kind's
// validator decodes only the keys it recognizes.
type Validation struct {
	Kind       ValidationKind  `json:"type" yaml:"type"`
	Conditions json.RawMessage `json:"conditions,omitempty" yaml:"-"`
}

// Example is a sample input/output pair shown alongside an exercise.
// Documentation only; never consulted during grading.
type Example struct {
	Input  string `json:"input,omitempty" yaml:"input,omitempty"`
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Exercise is the authoring-time definition of a challenge. Exercises are
// seeded by platform maintainers and immutable at grading time.
type Exercise struct {
	ID             string       `json:"id" db:"id"`
	Title          string       `json:"title" db:"title"`
	Difficulty     Difficulty   `json:"difficulty" db:"difficulty"`
	Description    string       `json:"description" db:"description"`
	Details        string       `json:"details,omitempty" db:"details"`
	Hint           string       `json:"hint,omitempty" db:"hint"`
	SuccessMessage string       `json:"success_message,omitempty" db:"success_message"`
	Example        *Example     `json:"example,omitempty"`
	Type           ExerciseType `json:"type" db:"type"`
	Validation     Validation   `json:"validation"`

	// Setup holds the statements that seed a practice session with the
	// exercise's base schema and data before the first attempt.
	Setup []string `json:"setup,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Submission is the persisted record of a passing attempt. Only the raw SQL
// and a pass summary are kept; result sets are never stored.
type Submission struct {
	ID         string    `json:"id" db:"id"`
	ExerciseID string    `json:"exercise_id" db:"exercise_id"`
	SessionID  string    `json:"session_id" db:"session_id"`
	SQL        string    `json:"sql" db:"sql_text"`
	Passed     bool      `json:"passed" db:"passed"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
