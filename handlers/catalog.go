package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"cineplay/models"
	"cineplay/services/catalog"
	"cineplay/services/source"
)

// CatalogHandler handles the movie catalog endpoints.
type CatalogHandler struct {
	catalog *catalog.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalogSvc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{catalog: catalogSvc}
}

// List returns all catalog movies, newest first.
// GET /api/movies
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.catalog.List())
}

// Get returns a single movie.
// GET /api/movies/{id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.catalog.Get(mux.Vars(r)["id"])
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "movie not found",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(movie)
}

// Upsert adds or replaces a movie.
// PUT /api/movies/{id}
func (h *CatalogHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var movie models.Movie
	if err := json.NewDecoder(r.Body).Decode(&movie); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	movie.ID = mux.Vars(r)["id"]
	if movie.AddedAt.IsZero() {
		movie.AddedAt = time.Now()
	}

	if err := h.catalog.Upsert(r.Context(), movie); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

// Delete removes a movie from the catalog.
// DELETE /api/movies/{id}
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(mux.Vars(r)["id"]); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrMovieNotFound) {
			status = http.StatusNotFound
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

// Resolve returns the candidate URL set for a catalog movie without opening
// a playback session.
// GET /api/movies/{id}/resolve
func (h *CatalogHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	set, err := h.catalog.Resolve(mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrMovieNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, source.ErrNoPlayableSource) {
			status = http.StatusUnprocessableEntity
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(set)
}
