package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"cineplay/models"
	"cineplay/services/catalog"
	"cineplay/services/progress"
)

// ProgressHandler handles watch progress endpoints.
type ProgressHandler struct {
	progress *progress.Service
	catalog  *catalog.Service
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(progressSvc *progress.Service, catalogSvc *catalog.Service) *ProgressHandler {
	return &ProgressHandler{
		progress: progressSvc,
		catalog:  catalogSvc,
	}
}

// Get returns the stored progress for a user and movie.
// GET /api/users/{userId}/progress/{movieId}
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	row, err := h.progress.Get(vars["userId"], vars["movieId"])
	if err != nil {
		writeValidationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if row == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"fraction": 0.0,
		})
		return
	}
	json.NewEncoder(w).Encode(row)
}

// Put records an explicit progress sample, for clients that report outside
// of a playback session.
// PUT /api/users/{userId}/progress/{movieId}
func (h *ProgressHandler) Put(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var update models.ProgressUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	h.progress.Report(vars["userId"], vars["movieId"], update.Fraction, update.DurationSeconds)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

// Delete clears the stored progress, the "start over" affordance outside a
// live session.
// DELETE /api/users/{userId}/progress/{movieId}
func (h *ProgressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.progress.Reset(vars["userId"], vars["movieId"]); err != nil {
		writeValidationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

// ContinueWatching returns the user's partially watched movies joined with
// catalog metadata, most recently watched first.
// GET /api/users/{userId}/continue-watching
func (h *ProgressHandler) ContinueWatching(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	rows, err := h.progress.ContinueWatching(userID)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	items := h.catalog.ContinueWatching(rows)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

func writeValidationError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, progress.ErrUserIDRequired) || errors.Is(err, progress.ErrMovieIDRequired) {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}
