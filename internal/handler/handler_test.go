package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sqldrill/sqldrill/internal/engine"
	"github.com/sqldrill/sqldrill/internal/engine/sqlite"
	"github.com/sqldrill/sqldrill/internal/model"
	"github.com/sqldrill/sqldrill/internal/service"
	"github.com/sqldrill/sqldrill/internal/store"
	"github.com/sqldrill/sqldrill/internal/validate"
)

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store  *store.Store
	router chi.Router
}

// newTestEnv creates a fresh test environment with an in-memory store, an
// embedded-sqlite session manager, and a Chi router with routes mounted.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("store.NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	registry := engine.NewRegistry()
	registry.RegisterDriver("sqlite", sqlite.New)
	t.Cleanup(registry.CloseAll)

	sessions := service.NewSessionManager(registry,
		engine.ConnectionConfig{Driver: "sqlite"},
		validate.NewGrader(nil), s, service.Events{}, nil)

	exHandler := NewExerciseHandler(s)
	atHandler := NewAttemptHandler(s, sessions)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/exercises", exHandler.List)
		r.Get("/exercises/{exerciseID}", exHandler.Get)
		r.Get("/exercises/{exerciseID}/submissions", exHandler.Submissions)

		r.Post("/exercises/{exerciseID}/attempts", atHandler.Attempt)
		r.Post("/exercises/{exerciseID}/reset", atHandler.Reset)
		r.Get("/exercises/{exerciseID}/schema", atHandler.Schema)

		r.Post("/classify", atHandler.Classify)
	})

	return &testEnv{store: s, router: r}
}

func (e *testEnv) seedExercise(t *testing.T) *model.Exercise {
	t.Helper()
	ex := &model.Exercise{
		ID:          "select-all",
		Title:       "Select everything",
		Difficulty:  model.DifficultyBeginner,
		Description: "Select all rows from users.",
		Type:        model.ExerciseDML,
		Validation: model.Validation{
			Kind:       model.ValidationExact,
			Conditions: json.RawMessage(`{"rows": 2}`),
		},
		Setup: []string{
			"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
			"INSERT INTO users (id, name) VALUES (1, 'ada'), (2, 'bob')",
		},
	}
	if err := e.store.UpsertExercise(context.Background(), ex); err != nil {
		t.Fatalf("UpsertExercise: %v", err)
	}
	return ex
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestListExercises(t *testing.T) {
	env := newTestEnv(t)
	env.seedExercise(t)

	rec := env.do(t, http.MethodGet, "/api/v1/exercises", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[model.ListResponse](t, rec)
	if resp.Meta == nil || resp.Meta.Count != 1 {
		t.Errorf("expected a count of 1, got %+v", resp.Meta)
	}
}

func TestGetExercise(t *testing.T) {
	env := newTestEnv(t)
	env.seedExercise(t)

	rec := env.do(t, http.MethodGet, "/api/v1/exercises/select-all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	ex := decode[model.Exercise](t, rec)
	if ex.ID != "select-all" || ex.Title == "" {
		t.Errorf("unexpected exercise: %+v", ex)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/exercises/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d, want 404", rec.Code)
	}
}

func TestAttemptEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.seedExercise(t)

	rec := env.do(t, http.MethodPost, "/api/v1/exercises/select-all/attempts",
		map[string]string{"sql": "SELECT * FROM users;"})
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[attemptResponse](t, rec)
	if resp.SessionID == "" {
		t.Error("expected a session ID in the response")
	}
	if resp.Verdict == nil || !resp.Verdict.IsValid {
		t.Fatalf("expected a passing verdict: %+v", resp.Verdict)
	}
	if len(resp.Results) != 1 || len(resp.Results[0].Rows) != 2 {
		t.Errorf("unexpected results: %+v", resp.Results)
	}

	// A passing attempt shows up in the submission log.
	rec = env.do(t, http.MethodGet, "/api/v1/exercises/select-all/submissions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	subs := decode[model.ListResponse](t, rec)
	if subs.Meta == nil || subs.Meta.Count != 1 {
		t.Errorf("expected 1 submission, got %+v", subs.Meta)
	}
}

func TestAttemptSessionContinuity(t *testing.T) {
	env := newTestEnv(t)
	env.seedExercise(t)

	first := decode[attemptResponse](t, env.do(t, http.MethodPost,
		"/api/v1/exercises/select-all/attempts",
		map[string]string{"sql": "INSERT INTO users (id, name) VALUES (3, 'eve');"}))

	// Same session sees the inserted row; rows=2 now fails.
	rec := env.do(t, http.MethodPost, "/api/v1/exercises/select-all/attempts",
		map[string]string{"sql": "SELECT * FROM users;", "session_id": first.SessionID})
	second := decode[attemptResponse](t, rec)
	if second.SessionID != first.SessionID {
		t.Error("expected the session to carry over")
	}
	if second.Verdict.IsValid {
		t.Error("3 rows against rows=2 must fail")
	}

	// Reset and try again.
	rec = env.do(t, http.MethodPost, "/api/v1/exercises/select-all/reset",
		map[string]string{"session_id": first.SessionID})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: got status %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/exercises/select-all/attempts",
		map[string]string{"sql": "SELECT * FROM users;", "session_id": first.SessionID})
	third := decode[attemptResponse](t, rec)
	if !third.Verdict.IsValid {
		t.Errorf("expected a pass after reset: %+v", third.Verdict)
	}
}

func TestAttemptBadRequests(t *testing.T) {
	env := newTestEnv(t)
	env.seedExercise(t)

	rec := env.do(t, http.MethodPost, "/api/v1/exercises/select-all/attempts",
		map[string]string{"sql": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty SQL: got status %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/exercises/missing/attempts",
		map[string]string{"sql": "SELECT 1;"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing exercise: got status %d, want 404", rec.Code)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedExercise(t)

	rec := env.do(t, http.MethodGet, "/api/v1/exercises/select-all/schema", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SessionID string                `json:"session_id"`
		Schema    *model.SchemaSnapshot `json:"schema"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("expected a session ID")
	}
	if resp.Schema == nil || resp.Schema.Table("users") == nil {
		t.Errorf("expected the seeded users table in the schema: %+v", resp.Schema)
	}
}

func TestClassifyEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/classify",
		map[string]string{"message": `relation "foo" does not exist`})
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	c := decode[validate.Classification](t, rec)
	if c.Message == "" {
		t.Error("expected a classification message")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/classify", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing message: got status %d, want 400", rec.Code)
	}
}
