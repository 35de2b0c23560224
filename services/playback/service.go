package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"cineplay/models"
	"cineplay/services/source"
)

var (
	ErrSessionNotFound = errors.New("playback session not found")
	ErrMovieNotFound   = errors.New("movie not found")
)

// Config carries the session timing knobs. Zero values are replaced with
// the defaults below.
type Config struct {
	ProgressInterval  time.Duration
	ControlsHideDelay time.Duration
	SeekResumeGrace   time.Duration
	SeekRetryDelay    time.Duration
	SessionIdleTTL    time.Duration
}

const (
	defaultProgressInterval  = 15 * time.Second
	defaultControlsHideDelay = 3 * time.Second
	defaultSeekResumeGrace   = 200 * time.Millisecond
	defaultSeekRetryDelay    = 500 * time.Millisecond
	defaultSessionIdleTTL    = 30 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = defaultProgressInterval
	}
	if c.ControlsHideDelay <= 0 {
		c.ControlsHideDelay = defaultControlsHideDelay
	}
	if c.SeekResumeGrace <= 0 {
		c.SeekResumeGrace = defaultSeekResumeGrace
	}
	if c.SeekRetryDelay <= 0 {
		c.SeekRetryDelay = defaultSeekRetryDelay
	}
	if c.SessionIdleTTL <= 0 {
		c.SessionIdleTTL = defaultSessionIdleTTL
	}
	return c
}

// Catalog is the movie lookup the playback service depends on.
type Catalog interface {
	Get(movieID string) (models.Movie, bool)
}

// progressService is the progress dependency: the session sink plus the
// initial read done at open.
type progressService interface {
	ProgressSink
	LoadInitial(userID, movieID string) (float64, bool)
}

// Service owns all live playback sessions. One session per mounted play
// view; sessions are never shared. Abandoned sessions (no events, no
// actions) are reaped after the idle TTL with a normal teardown flush.
type Service struct {
	mu       sync.RWMutex
	cfg      Config
	sessions map[string]*Session
	resolver *source.Resolver
	catalog  Catalog
	progress progressService
	stop     chan struct{}
}

// NewService creates the session registry and starts its reaper loop.
func NewService(resolver *source.Resolver, catalog Catalog, progressSvc progressService, cfg Config) *Service {
	s := &Service{
		cfg:      cfg.withDefaults(),
		sessions: make(map[string]*Session),
		resolver: resolver,
		catalog:  catalog,
		progress: progressSvc,
		stop:     make(chan struct{}),
	}
	go s.reapLoop()
	return s
}

// Open resolves the movie's candidate URLs and creates a playback session.
// Embedded-frame mode is selected for platform sources; everything else is
// a direct media-element session.
func (s *Service) Open(req models.OpenSessionRequest) (*Session, error) {
	movie, ok := s.catalog.Get(req.MovieID)
	if !ok {
		return nil, ErrMovieNotFound
	}

	candidates, err := s.resolver.Resolve(movie)
	if err != nil {
		return nil, err
	}

	mode := models.SessionModeDirect
	initialQuality := defaultQuality(candidates)
	initialURL := candidates.URL(initialQuality)
	if candidates.SourceType.IsPlatform() {
		mode = models.SessionModeEmbed
		initialQuality = models.QualityEmbed
		initialURL = candidates.URL(models.QualityEmbed)
	}

	var resumeFraction float64
	if mode == models.SessionModeDirect {
		if f, ok := s.progress.LoadInitial(req.UserID, movie.ID); ok {
			resumeFraction = f
		}
	}

	session := newSession(uuid.NewString(), req, movie, mode, candidates,
		NewDirectiveEngine(), s.progress, s.cfg, resumeFraction)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	session.start(initialURL, initialQuality)
	return session, nil
}

// Get returns a live session by ID.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close tears down a session and removes it from the registry.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	return nil
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown closes every live session (final flush included) and stops the
// reaper.
func (s *Service) Shutdown() {
	close(s.stop)

	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

func (s *Service) reapLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.reapIdle()
		}
	}
}

func (s *Service) reapIdle() {
	cutoff := time.Now().Add(-s.cfg.SessionIdleTTL)

	s.mu.Lock()
	var idle []*Session
	for id, session := range s.sessions {
		if session.LastActivity().Before(cutoff) {
			idle = append(idle, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range idle {
		session.Close()
	}
}

// defaultQuality picks the initial source for a direct session: the HLS
// playlist when present (the engine picks renditions adaptively), otherwise
// the highest MP4 rung, otherwise the original reference.
func defaultQuality(set models.CandidateSet) string {
	if u, ok := set.URLs[models.QualityHLS]; ok && u != "" {
		return models.QualityHLS
	}
	for _, q := range []string{models.Quality1080p, models.Quality720p, models.Quality480p, models.Quality360p} {
		if u, ok := set.URLs[q]; ok && u != "" {
			return q
		}
	}
	return models.QualityOriginal
}
