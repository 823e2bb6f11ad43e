// Package handler contains the HTTP handlers of the grading API.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sqldrill/sqldrill/internal/model"
	"github.com/sqldrill/sqldrill/internal/store"
)

// ExerciseHandler serves the exercise catalog and submission history.
type ExerciseHandler struct {
	store *store.Store
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(s *store.Store) *ExerciseHandler {
	return &ExerciseHandler{store: s}
}

// List returns the catalog ordered by difficulty tier, then ID.
// GET /api/v1/exercises
func (h *ExerciseHandler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	exercises, err := h.store.ListExercises(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exercises: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: exercises,
		Meta: &model.ResponseMeta{
			Count:  len(exercises),
			TookMs: float64(time.Since(start).Microseconds()) / 1000.0,
		},
	})
}

// Get returns a single exercise by ID.
// GET /api/v1/exercises/{exerciseID}
func (h *ExerciseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exerciseID")

	ex, err := h.store.GetExercise(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Exercise not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get exercise: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ex)
}

// Submissions returns the recorded passing submissions for an exercise,
// newest first.
// GET /api/v1/exercises/{exerciseID}/submissions
func (h *ExerciseHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "exerciseID")

	if _, err := h.store.GetExercise(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Exercise not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get exercise: "+err.Error())
		return
	}

	subs, err := h.store.ListSubmissions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list submissions: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: subs,
		Meta:     &model.ResponseMeta{Count: len(subs)},
	})
}
