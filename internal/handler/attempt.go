package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sqldrill/sqldrill/internal/model"
	"github.com/sqldrill/sqldrill/internal/service"
	"github.com/sqldrill/sqldrill/internal/store"
	"github.com/sqldrill/sqldrill/internal/validate"
)

// AttemptHandler runs attempts against practice sessions and exposes the
// session's live schema.
type AttemptHandler struct {
	store    *store.Store
	sessions *service.SessionManager
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(s *store.Store, sessions *service.SessionManager) *AttemptHandler {
	return &AttemptHandler{store: s, sessions: sessions}
}

type attemptRequest struct {
	SQL       string `json:"sql"`
	SessionID string `json:"session_id"`
}

type attemptResponse struct {
	SessionID string                   `json:"session_id"`
	Results   []*model.QueryResult     `json:"results"`
	Verdict   *model.ValidationVerdict `json:"verdict"`
}

// Attempt executes a learner's SQL against their session and returns the
// per-statement results plus the verdict. An absent session_id starts a new
// session; the response always carries the session ID to use next.
// POST /api/v1/exercises/{exerciseID}/attempts
func (h *AttemptHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	ex, ok := h.exercise(w, r)
	if !ok {
		return
	}

	var req attemptRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sess := h.sessions.Get(req.SessionID)
	outcome, err := sess.Attempt(r.Context(), ex, req.SQL)
	if err != nil {
		if errors.Is(err, service.ErrNoStatements) {
			writeError(w, http.StatusBadRequest, "No SQL statements to execute")
			return
		}
		writeError(w, http.StatusInternalServerError, "Attempt failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, attemptResponse{
		SessionID: sess.ID,
		Results:   outcome.Results,
		Verdict:   outcome.Verdict,
	})
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

// Reset reseeds the session's practice database for an exercise, discarding
// everything prior attempts changed.
// POST /api/v1/exercises/{exerciseID}/reset
func (h *AttemptHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ex, ok := h.exercise(w, r)
	if !ok {
		return
	}

	var req resetRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sess := h.sessions.Get(req.SessionID)
	if err := sess.Reset(r.Context(), ex); err != nil {
		writeError(w, http.StatusInternalServerError, "Reset failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"session_id": sess.ID, "status": "reset"})
}

// Schema returns the live schema of the session's practice database for an
// exercise, seeding the session if it has not run anything yet.
// GET /api/v1/exercises/{exerciseID}/schema?session_id=...
func (h *AttemptHandler) Schema(w http.ResponseWriter, r *http.Request) {
	ex, ok := h.exercise(w, r)
	if !ok {
		return
	}

	sess := h.sessions.Get(queryString(r, "session_id"))
	snap, err := sess.Schema(r.Context(), ex)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to introspect schema: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"schema":     snap,
	})
}

type classifyRequest struct {
	Message    string `json:"message"`
	ExerciseID string `json:"exercise_id"`
	SessionID  string `json:"session_id"`
}

// Classify turns a raw engine error message into a teachable diagnostic.
// When the request names an exercise and session, the session's live schema
// feeds the classifier so its messages can list real table and column names.
// POST /api/v1/classify
func (h *AttemptHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Missing error message to classify")
		return
	}

	var snap *model.SchemaSnapshot
	if req.ExerciseID != "" && req.SessionID != "" {
		if ex, err := h.store.GetExercise(r.Context(), req.ExerciseID); err == nil {
			if s, err := h.sessions.Get(req.SessionID).Schema(r.Context(), ex); err == nil {
				snap = s
			}
		}
	}

	writeJSON(w, http.StatusOK, validate.Classify(errors.New(req.Message), snap))
}

func (h *AttemptHandler) exercise(w http.ResponseWriter, r *http.Request) (*model.Exercise, bool) {
	id := chi.URLParam(r, "exerciseID")

	ex, err := h.store.GetExercise(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Exercise not found: "+id)
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get exercise: "+err.Error())
		return nil, false
	}
	return ex, true
}
