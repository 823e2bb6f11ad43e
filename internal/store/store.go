// Package store persists exercise content and submission history in an
// embedded SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sqldrill/sqldrill/internal/model"
)

// Store manages sqldrill's persistent state backed by SQLite. It holds the
// exercise catalog and the submission log; live practice databases are kept
// elsewhere, per session.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new store. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "sqldrill.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate store database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Exercise catalog
// ---------------------------------------------------------------------------

// exerciseRow is a flat struct that maps 1:1 to the exercises table columns.
// We use it for sqlx scanning because model.Exercise nests Example,
// Validation, and Setup, which don't map directly to columns.
type exerciseRow struct {
	ID             string    `db:"id"`
	Title          string    `db:"title"`
	Difficulty     string    `db:"difficulty"`
	Description    string    `db:"description"`
	Details        string    `db:"details"`
	Hint           string    `db:"hint"`
	SuccessMessage string    `db:"success_message"`
	ExampleInput   string    `db:"example_input"`
	ExampleOutput  string    `db:"example_output"`
	Type           string    `db:"type"`
	ValidationType string    `db:"validation_type"`
	ValidationJSON string    `db:"validation_conditions"`
	SetupJSON      string    `db:"setup_json"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func exerciseRowFromModel(ex *model.Exercise) (exerciseRow, error) {
	conditions := "{}"
	if len(ex.Validation.Conditions) > 0 {
		conditions = string(ex.Validation.Conditions)
	}

	setup, err := json.Marshal(ex.Setup)
	if err != nil {
		return exerciseRow{}, fmt.Errorf("marshal setup: %w", err)
	}

	row := exerciseRow{
		ID:             ex.ID,
		Title:          ex.Title,
		Difficulty:     string(ex.Difficulty),
		Description:    ex.Description,
		Details:        ex.Details,
		Hint:           ex.Hint,
		SuccessMessage: ex.SuccessMessage,
		Type:           string(ex.Type),
		ValidationType: string(ex.Validation.Kind),
		ValidationJSON: conditions,
		SetupJSON:      string(setup),
		CreatedAt:      ex.CreatedAt,
		UpdatedAt:      ex.UpdatedAt,
	}
	if ex.Example != nil {
		row.ExampleInput = ex.Example.Input
		row.ExampleOutput = ex.Example.Output
	}
	return row, nil
}

func (r exerciseRow) toModel() (model.Exercise, error) {
	var setup []string
	if r.SetupJSON != "" && r.SetupJSON != "[]" {
		if err := json.Unmarshal([]byte(r.SetupJSON), &setup); err != nil {
			return model.Exercise{}, fmt.Errorf("unmarshal setup: %w", err)
		}
	}

	ex := model.Exercise{
		ID:             r.ID,
		Title:          r.Title,
		Difficulty:     model.Difficulty(r.Difficulty),
		Description:    r.Description,
		Details:        r.Details,
		Hint:           r.Hint,
		SuccessMessage: r.SuccessMessage,
		Type:           model.ExerciseType(r.Type),
		Validation: model.Validation{
			Kind:       model.ValidationKind(r.ValidationType),
			Conditions: json.RawMessage(r.ValidationJSON),
		},
		Setup:     setup,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ExampleInput != "" || r.ExampleOutput != "" {
		ex.Example = &model.Example{Input: r.ExampleInput, Output: r.ExampleOutput}
	}
	return ex, nil
}

// UpsertExercise inserts an exercise or replaces the existing row with the
// same ID. Seeding runs on every startup, so replacement keeps the catalog
// in sync with the content files. CreatedAt is preserved across replaces.
func (s *Store) UpsertExercise(ctx context.Context, ex *model.Exercise) error {
	now := time.Now().UTC()
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = now
	}
	ex.UpdatedAt = now

	row, err := exerciseRowFromModel(ex)
	if err != nil {
		return err
	}

	const q = `INSERT INTO exercises
		(id, title, difficulty, description, details, hint, success_message,
		 example_input, example_output, type, validation_type, validation_conditions,
		 setup_json, created_at, updated_at)
		VALUES
		(:id, :title, :difficulty, :description, :details, :hint, :success_message,
		 :example_input, :example_output, :type, :validation_type, :validation_conditions,
		 :setup_json, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
		 title = excluded.title, difficulty = excluded.difficulty,
		 description = excluded.description, details = excluded.details,
		 hint = excluded.hint, success_message = excluded.success_message,
		 example_input = excluded.example_input, example_output = excluded.example_output,
		 type = excluded.type, validation_type = excluded.validation_type,
		 validation_conditions = excluded.validation_conditions,
		 setup_json = excluded.setup_json, updated_at = excluded.updated_at`

	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("upsert exercise: %w", err)
	}
	return nil
}

// GetExercise returns an exercise by ID.
func (s *Store) GetExercise(ctx context.Context, id string) (*model.Exercise, error) {
	var row exerciseRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM exercises WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exercise: %w", err)
	}
	ex, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// ListExercises returns the full catalog ordered by difficulty tier, then ID.
func (s *Store) ListExercises(ctx context.Context) ([]model.Exercise, error) {
	const q = `SELECT * FROM exercises ORDER BY
		CASE difficulty
			WHEN 'Beginner' THEN 0
			WHEN 'Intermediate' THEN 1
			WHEN 'Advanced' THEN 2
			ELSE 3
		END, id`

	var rows []exerciseRow
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}

	exercises := make([]model.Exercise, len(rows))
	for i, r := range rows {
		ex, err := r.toModel()
		if err != nil {
			return nil, err
		}
		exercises[i] = ex
	}
	return exercises, nil
}

// DeleteExercise removes an exercise by ID. Associated submissions are
// cascade deleted by the foreign key constraint.
func (s *Store) DeleteExercise(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM exercises WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete exercise rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Submission log
// ---------------------------------------------------------------------------

// CreateSubmission inserts a new submission record. The ID and CreatedAt
// fields on sub are populated after a successful insert.
func (s *Store) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO submissions (id, exercise_id, session_id, sql_text, passed, created_at)
		VALUES (:id, :exercise_id, :session_id, :sql_text, :passed, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, sub); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// ListSubmissions returns all submissions for an exercise, newest first.
func (s *Store) ListSubmissions(ctx context.Context, exerciseID string) ([]model.Submission, error) {
	var subs []model.Submission
	const q = "SELECT * FROM submissions WHERE exercise_id = ? ORDER BY created_at DESC, id"
	if err := s.db.SelectContext(ctx, &subs, q, exerciseID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// ListSessionSubmissions returns all submissions recorded by one session,
// newest first.
func (s *Store) ListSessionSubmissions(ctx context.Context, sessionID string) ([]model.Submission, error) {
	var subs []model.Submission
	const q = "SELECT * FROM submissions WHERE session_id = ? ORDER BY created_at DESC, id"
	if err := s.db.SelectContext(ctx, &subs, q, sessionID); err != nil {
		return nil, fmt.Errorf("list session submissions: %w", err)
	}
	return subs, nil
}

// Stats returns the catalog and submission-log row counts.
func (s *Store) Stats(ctx context.Context) (exercises, submissions int, err error) {
	if err = s.db.GetContext(ctx, &exercises, "SELECT COUNT(*) FROM exercises"); err != nil {
		return 0, 0, fmt.Errorf("count exercises: %w", err)
	}
	if err = s.db.GetContext(ctx, &submissions, "SELECT COUNT(*) FROM submissions"); err != nil {
		return 0, 0, fmt.Errorf("count submissions: %w", err)
	}
	return exercises, submissions, nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// GetSetting returns the value of a key-value setting. Returns ErrNotFound
// for unknown keys.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// SetSetting stores a key-value setting, replacing any existing value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	const q = `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
