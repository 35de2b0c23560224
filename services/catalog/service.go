package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cineplay/models"
	"cineplay/services/source"
	"cineplay/utils"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrMovieNotFound      = errors.New("movie not found")
)

// Service holds the movie catalog in memory, backed by catalog.json in the
// storage directory. Each service instance owns its own data and caches;
// there is no process-global state.
type Service struct {
	mu       sync.RWMutex
	path     string
	movies   map[string]models.Movie
	resolver *source.Resolver
}

// NewService loads the catalog from the given storage directory. A missing
// catalog file starts empty.
func NewService(storageDir string, resolver *source.Resolver) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	svc := &Service{
		path:     filepath.Join(storageDir, "catalog.json"),
		movies:   make(map[string]models.Movie),
		resolver: resolver,
	}
	if err := svc.load(); err != nil {
		return nil, err
	}
	return svc, nil
}

// Get returns a movie by ID.
func (s *Service) Get(movieID string) (models.Movie, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[movieID]
	return m, ok
}

// List returns all movies, newest first.
func (s *Service) List() []models.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.After(out[j].AddedAt)
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// Upsert adds or replaces a movie and persists the catalog.
func (s *Service) Upsert(ctx context.Context, movie models.Movie) error {
	if strings.TrimSpace(movie.ID) == "" {
		return errors.New("movie id is required")
	}
	if err := utils.ValidateMediaURL(movie.VideoURL); err != nil {
		return err
	}
	for _, u := range movie.VideoURLs {
		if err := utils.ValidateMediaURL(u); err != nil {
			return err
		}
	}

	// Fill metadata gaps from the CDN when enrichment is configured.
	if s.resolver != nil {
		s.resolver.Enrich(ctx, &movie)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[movie.ID] = movie
	return s.saveLocked()
}

// Delete removes a movie from the catalog.
func (s *Service) Delete(movieID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[movieID]; !ok {
		return ErrMovieNotFound
	}
	delete(s.movies, movieID)
	return s.saveLocked()
}

// Resolve returns the candidate URL set for a catalog movie.
func (s *Service) Resolve(movieID string) (models.CandidateSet, error) {
	movie, ok := s.Get(movieID)
	if !ok {
		return models.CandidateSet{}, ErrMovieNotFound
	}
	return s.resolver.Resolve(movie)
}

// ContinueWatching joins progress rows against catalog entries, dropping
// rows whose movie no longer exists.
func (s *Service) ContinueWatching(rows []models.WatchProgress) []models.ContinueWatchingItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ContinueWatchingItem, 0, len(rows))
	for _, row := range rows {
		movie, ok := s.movies[row.MovieID]
		if !ok {
			continue
		}
		out = append(out, models.ContinueWatchingItem{
			Movie:     movie,
			Fraction:  row.Fraction,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return out
}

// load reads catalog.json from disk.
func (s *Service) load() error {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open catalog file: %w", err)
	}
	defer file.Close()

	var stored []models.Movie
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}

	s.movies = make(map[string]models.Movie, len(stored))
	for _, m := range stored {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		s.movies[m.ID] = m
	}
	return nil
}

// saveLocked writes the catalog with an atomic temp-file rename. Must be
// called with mu held.
func (s *Service) saveLocked() error {
	movies := make([]models.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		movies = append(movies, m)
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i].ID < movies[j].ID })

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create catalog temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(movies); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync catalog: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close catalog temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace catalog file: %w", err)
	}
	return nil
}
