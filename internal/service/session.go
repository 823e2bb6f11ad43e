// Package service owns practice sessions: the live database a learner's
// attempts run against, and the attempt flow that executes, classifies,
// grades, and records.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sqldrill/sqldrill/internal/engine"
	"github.com/sqldrill/sqldrill/internal/model"
	"github.com/sqldrill/sqldrill/internal/query"
	"github.com/sqldrill/sqldrill/internal/validate"
)

// ErrNoStatements is returned when an attempt contains no executable SQL.
var ErrNoStatements = errors.New("attempt contains no SQL statements")

// Recorder persists passing submissions. *store.Store satisfies this.
type Recorder interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
}

// Events carries optional callbacks fired during the attempt flow. All
// callbacks run synchronously on the attempt path.
type Events struct {
	// OnPass fires after a passing submission has been recorded.
	OnPass func(ctx context.Context, sub *model.Submission)
}

// AttemptOutcome is everything one attempt produced: the per-statement
// results (classification included for the failing statement), and the
// verdict over the final statement's result.
type AttemptOutcome struct {
	Results []*model.QueryResult     `json:"results"`
	Verdict *model.ValidationVerdict `json:"verdict"`
}

// Session is one learner's live practice database plus the exercise it is
// currently seeded for. The engine is opened lazily on the first attempt and
// reopened from scratch whenever the exercise changes or the session resets.
// The mutex serializes all engine access; attempts never interleave.
type Session struct {
	ID string

	mu       sync.Mutex
	registry *engine.Registry
	cfg      engine.ConnectionConfig
	grader   *validate.Grader
	recorder Recorder
	events   Events
	log      *slog.Logger

	eng        engine.Engine
	exerciseID string
}

// seed reopens the session's engine and runs the exercise's setup
// statements. Reopening through the registry drops every table and row the
// previous exercise or attempt left behind.
func (s *Session) seed(ctx context.Context, ex *model.Exercise) error {
	eng, err := s.registry.Open(s.ID, s.cfg)
	if err != nil {
		return fmt.Errorf("open practice database: %w", err)
	}

	for _, stmt := range ex.Setup {
		for _, piece := range query.SplitStatements(stmt) {
			if _, err := eng.Execute(ctx, piece); err != nil {
				s.registry.Close(s.ID)
				s.eng = nil
				s.exerciseID = ""
				return fmt.Errorf("seed exercise %s: %w", ex.ID, err)
			}
		}
	}

	s.eng = eng
	s.exerciseID = ex.ID
	s.log.Debug("session seeded", "session_id", s.ID, "exercise_id", ex.ID)
	return nil
}

func (s *Session) ensureSeeded(ctx context.Context, ex *model.Exercise) error {
	if s.eng != nil && s.exerciseID == ex.ID {
		return nil
	}
	return s.seed(ctx, ex)
}

// Attempt runs a learner's SQL against the session and grades the outcome.
// Statements run in order; the first execution failure stops the batch, is
// classified against the pre-failure schema, and fails the attempt. When
// every statement runs, the final statement's result is graded. A passing
// verdict records a submission.
func (s *Session) Attempt(ctx context.Context, ex *model.Exercise, sqlText string) (*AttemptOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSeeded(ctx, ex); err != nil {
		return nil, err
	}

	statements := query.SplitStatements(sqlText)
	if len(statements) == 0 {
		return nil, ErrNoStatements
	}

	outcome := &AttemptOutcome{}
	for _, stmt := range statements {
		res, err := s.eng.Execute(ctx, stmt)
		if err != nil {
			// Introspect before giving the classifier the error so its
			// diagnostics can name the tables that do exist. Introspection
			// failure degrades to a snapshot-free classification.
			snap, inspectErr := s.eng.InspectSchema(ctx)
			if inspectErr != nil {
				snap = nil
			}
			c := validate.Classify(err, snap)

			failed := &model.QueryResult{
				Error:   true,
				Message: c.Message,
				Example: c.Example,
			}
			outcome.Results = append(outcome.Results, failed)

			verdict, gerr := s.grader.Grade(ctx, s.eng, ex, failed)
			if gerr != nil {
				return nil, gerr
			}
			outcome.Verdict = verdict
			return outcome, nil
		}
		outcome.Results = append(outcome.Results, res)
	}

	final := outcome.Results[len(outcome.Results)-1]
	verdict, err := s.grader.Grade(ctx, s.eng, ex, final)
	if err != nil {
		return nil, err
	}
	outcome.Verdict = verdict

	if verdict.IsValid {
		sub := &model.Submission{
			ExerciseID: ex.ID,
			SessionID:  s.ID,
			SQL:        sqlText,
			Passed:     true,
		}
		if s.recorder != nil {
			if err := s.recorder.CreateSubmission(ctx, sub); err != nil {
				// Grading succeeded; losing the history row is not worth
				// failing the attempt over.
				s.log.Error("record submission", "error", err, "exercise_id", ex.ID)
			} else if s.events.OnPass != nil {
				s.events.OnPass(ctx, sub)
			}
		}
	}

	return outcome, nil
}

// Reset reseeds the session for an exercise, discarding all prior state.
func (s *Session) Reset(ctx context.Context, ex *model.Exercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed(ctx, ex)
}

// Schema returns the live schema of the session's practice database for the
// given exercise, seeding first if the session has not touched it yet.
func (s *Session) Schema(ctx context.Context, ex *model.Exercise) (*model.SchemaSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSeeded(ctx, ex); err != nil {
		return nil, err
	}
	return s.eng.InspectSchema(ctx)
}

// Close disconnects the session's engine, if one was ever opened.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eng == nil {
		return nil
	}
	s.eng = nil
	s.exerciseID = ""
	return s.registry.Close(s.ID)
}

// SessionManager hands out sessions by ID and owns their shared wiring.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	registry *engine.Registry
	cfg      engine.ConnectionConfig
	grader   *validate.Grader
	recorder Recorder
	events   Events
	log      *slog.Logger
}

// NewSessionManager creates a manager whose sessions open engines with cfg.
func NewSessionManager(registry *engine.Registry, cfg engine.ConnectionConfig, grader *validate.Grader, recorder Recorder, events Events, log *slog.Logger) *SessionManager {
	if log == nil {
		log = slog.Default()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		registry: registry,
		cfg:      cfg,
		grader:   grader,
		recorder: recorder,
		events:   events,
		log:      log,
	}
}

// Get returns the session for an ID, creating it on first use. An empty ID
// gets a fresh session under a new ID; callers hand the ID back to the
// client so subsequent attempts land on the same practice database.
func (m *SessionManager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if s, ok := m.sessions[id]; ok {
		return s
	}

	s := &Session{
		ID:       id,
		registry: m.registry,
		cfg:      m.cfg,
		grader:   m.grader,
		recorder: m.recorder,
		events:   m.events,
		log:      m.log,
	}
	m.sessions[id] = s
	return s
}

// Remove closes and forgets a session.
func (m *SessionManager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Close()
}

// CloseAll shuts down every session. Used at server shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
