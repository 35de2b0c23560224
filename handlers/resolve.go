package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"cineplay/models"
	"cineplay/services/source"
)

// maxBatchReferences bounds a single batch resolve request.
const maxBatchReferences = 100

// batchResolveWorkers bounds concurrent candidate expansion for a batch.
const batchResolveWorkers = 8

// ResolveHandler handles source classification and candidate expansion
// endpoints.
type ResolveHandler struct {
	resolver *source.Resolver
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(resolver *source.Resolver) *ResolveHandler {
	return &ResolveHandler{resolver: resolver}
}

// Resolve classifies a single reference and expands its quality candidates.
// POST /api/playback/resolve
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req models.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	result := h.resolveOne(req.Reference)
	if result.Error != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(result)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// ResolveBatch classifies and expands many references in one call. Results
// come back in request order regardless of completion order.
// POST /api/playback/resolve/batch
func (h *ResolveHandler) ResolveBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if len(req.References) == 0 {
		http.Error(w, `{"error": "references are required"}`, http.StatusBadRequest)
		return
	}
	if len(req.References) > maxBatchReferences {
		http.Error(w, `{"error": "too many references"}`, http.StatusBadRequest)
		return
	}

	results := make([]models.ResolveResult, len(req.References))
	p := pool.New().WithMaxGoroutines(batchResolveWorkers)
	for i, ref := range req.References {
		i, ref := i, ref
		p.Go(func() {
			results[i] = h.resolveOne(ref)
		})
	}
	p.Wait()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.BatchResolveResponse{Results: results})
}

func (h *ResolveHandler) resolveOne(reference string) models.ResolveResult {
	reference = strings.TrimSpace(reference)
	result := models.ResolveResult{
		Classification: source.Classify(reference),
	}

	set, err := h.resolver.ResolveReference(reference)
	if err != nil {
		if errors.Is(err, source.ErrNoPlayableSource) {
			result.Error = "no playable video source"
		} else {
			result.Error = err.Error()
		}
		return result
	}

	result.Candidates = &set
	return result
}
