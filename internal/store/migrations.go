package store

import (
	"fmt"
	"strings"
)

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS exercises (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT '',
			hint TEXT NOT NULL DEFAULT '',
			success_message TEXT NOT NULL DEFAULT '',
			example_input TEXT NOT NULL DEFAULT '',
			example_output TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'dml',
			validation_type TEXT NOT NULL,
			validation_conditions TEXT NOT NULL DEFAULT '{}',
			setup_json TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			exercise_id TEXT NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
			session_id TEXT NOT NULL,
			sql_text TEXT NOT NULL,
			passed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_submissions_exercise_id ON submissions(exercise_id)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_session_id ON submissions(session_id)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// SQLite ALTER TABLE ADD COLUMN fails if column already exists;
			// treat "duplicate column" as a no-op for idempotent migrations.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
