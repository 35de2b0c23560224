package source

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"cineplay/models"
	"cineplay/utils"
)

// ErrNoPlayableSource indicates that classification and formatting produced
// no usable URL for a reference. Callers must not open a playback session.
var ErrNoPlayableSource = errors.New("no playable video source")

// Resolver turns catalog movies and raw references into candidate URL sets.
// Each resolver owns its own cache; nothing is process-global, so resolvers
// can be created and discarded with their owning server.
type Resolver struct {
	mu       sync.RWMutex
	cache    map[string]models.CandidateSet
	metadata *MetadataClient
}

// NewResolver creates a resolver with an empty candidate cache.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]models.CandidateSet)}
}

// SetMetadataClient enables optional Bunny metadata enrichment. A nil client
// disables it.
func (r *Resolver) SetMetadataClient(c *MetadataClient) {
	r.metadata = c
}

// Resolve produces the candidate set for a catalog movie. A pre-resolved
// URL map attached by the importer takes precedence; otherwise the raw
// VideoURL reference is classified and formatted.
func (r *Resolver) Resolve(movie models.Movie) (models.CandidateSet, error) {
	if movie.HasPreResolvedURLs() {
		set := models.CandidateSet{
			URLs:       make(map[string]string, len(movie.VideoURLs)+1),
			SourceType: movie.SourceType,
		}
		for k, v := range movie.VideoURLs {
			set.URLs[k] = v
		}
		if set.URLs[models.QualityOriginal] == "" {
			set.URLs[models.QualityOriginal] = movie.VideoURL
		}
		if set.SourceType == "" {
			set.SourceType = Classify(movie.VideoURL).Provider
		}
		if !set.HasPlayable() {
			return models.CandidateSet{}, ErrNoPlayableSource
		}
		return set, nil
	}

	return r.ResolveReference(movie.VideoURL)
}

// ResolveReference classifies and formats a raw reference, caching the
// result. Formatting is deterministic so the cache is a pure lookup.
func (r *Resolver) ResolveReference(reference string) (models.CandidateSet, error) {
	if strings.Contains(reference, " ") {
		// Some import sources store URLs with raw spaces.
		if encoded, err := utils.EncodeURLWithSpaces(strings.TrimSpace(reference)); err == nil {
			reference = encoded
		}
	}

	r.mu.RLock()
	set, ok := r.cache[reference]
	r.mu.RUnlock()
	if !ok {
		set = FormatCandidates(reference)
		r.mu.Lock()
		r.cache[reference] = set
		r.mu.Unlock()
	}

	if !set.HasPlayable() {
		return models.CandidateSet{}, ErrNoPlayableSource
	}
	return set, nil
}

// Enrich fills missing movie metadata (duration, title) from the Bunny video
// API when a metadata client is configured and the reference identifies a
// {library, video} pair. Enrichment is best effort: failures are logged and
// the movie is returned unchanged.
func (r *Resolver) Enrich(ctx context.Context, movie *models.Movie) {
	if r.metadata == nil || movie == nil {
		return
	}

	lib, vid := bunnyPair(movie.VideoURL)
	if lib == "" || vid == "" {
		return
	}

	meta, err := r.metadata.Video(ctx, lib, vid)
	if err != nil {
		log.Printf("[source] metadata enrichment failed for movie %s: %v", movie.ID, err)
		return
	}
	if movie.DurationSeconds == 0 && meta.Length > 0 {
		movie.DurationSeconds = float64(meta.Length)
	}
	if movie.Title == "" && meta.Title != "" {
		movie.Title = meta.Title
	}
}

// bunnyPair extracts the {library, video} pair from either an embed/play
// page URL or a pull-zone asset URL (vz-{lib}-17b hostname).
func bunnyPair(reference string) (libraryID, videoID string) {
	c := Classify(reference)
	if c.Provider != models.ProviderBunny || c.CanonicalID == "" {
		return "", ""
	}
	return bunnyLibraryID(reference), c.CanonicalID
}
