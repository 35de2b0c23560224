package progress

import (
	"errors"
	"log"
	"strings"

	"cineplay/models"
)

// completionThreshold marks the fraction at or above which a watch is
// treated as finished. Interval writes in [completionThreshold, 1) are
// suppressed so a teardown race cannot overwrite a completed watch, and
// writes at exactly 0 are suppressed so it cannot overwrite real progress
// with a stale "just started" value. Only MarkCompleted writes 1.0 and only
// Reset writes 0.
const completionThreshold = 0.99

// resumeWindowHigh bounds the resume offer: progress at or beyond it is
// close enough to the end that restarting is the only sensible choice.
const resumeWindowHigh = 0.95

var (
	ErrUserIDRequired  = errors.New("user id is required")
	ErrMovieIDRequired = errors.New("movie id is required")
)

// Repository is the persistence interface the tracker writes through.
type Repository interface {
	Get(userID, movieID string) (*models.WatchProgress, error)
	Upsert(p models.WatchProgress) error
	Delete(userID, movieID string) error
	ListInProgress(userID string, completionThreshold float64) ([]models.WatchProgress, error)
}

// Service tracks per-(user, movie) watch progress. Reporting is fire and
// forget: persistence failures are logged and swallowed so progress tracking
// can never stall or break playback.
type Service struct {
	repo Repository
}

// NewService creates a progress tracker backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// LoadInitial reads the saved fraction for a (user, movie) pair once at
// session open. The second return is false when there is nothing saved or
// the read failed.
func (s *Service) LoadInitial(userID, movieID string) (float64, bool) {
	p, err := s.repo.Get(userID, movieID)
	if err != nil {
		log.Printf("[progress] load failed for %s/%s: %v", userID, movieID, err)
		return 0, false
	}
	if p == nil {
		return 0, false
	}
	return p.Fraction, true
}

// ShouldOfferResume reports whether a saved fraction warrants the
// resume/start-over prompt: strictly between zero and the resume window
// bound.
func ShouldOfferResume(fraction float64) bool {
	return fraction > 0 && fraction < resumeWindowHigh
}

// Report persists an interval or teardown progress sample. Samples at
// exactly 0 or at/beyond the completion threshold are dropped; out-of-range
// values are clamped first.
func (s *Service) Report(userID, movieID string, fraction, durationSeconds float64) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(movieID) == "" {
		return
	}

	fraction = clampFraction(fraction)
	if fraction == 0 || fraction >= completionThreshold {
		return
	}

	s.write(models.WatchProgress{
		UserID:          userID,
		MovieID:         movieID,
		Fraction:        fraction,
		DurationSeconds: durationSeconds,
	})
}

// MarkCompleted records the end-of-stream write of exactly 1.0.
func (s *Service) MarkCompleted(userID, movieID string, durationSeconds float64) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(movieID) == "" {
		return
	}

	s.write(models.WatchProgress{
		UserID:          userID,
		MovieID:         movieID,
		Fraction:        1.0,
		DurationSeconds: durationSeconds,
	})
}

// Reset is the explicit "start over": the stored fraction goes back to 0.
func (s *Service) Reset(userID, movieID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}
	if strings.TrimSpace(movieID) == "" {
		return ErrMovieIDRequired
	}
	return s.repo.Delete(userID, movieID)
}

// Get returns the stored progress row, or nil when none exists.
func (s *Service) Get(userID, movieID string) (*models.WatchProgress, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDRequired
	}
	if strings.TrimSpace(movieID) == "" {
		return nil, ErrMovieIDRequired
	}
	return s.repo.Get(userID, movieID)
}

// ContinueWatching lists a user's partially watched movies, most recent
// first.
func (s *Service) ContinueWatching(userID string) ([]models.WatchProgress, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDRequired
	}
	return s.repo.ListInProgress(userID, resumeWindowHigh)
}

func (s *Service) write(p models.WatchProgress) {
	if err := s.repo.Upsert(p); err != nil {
		log.Printf("[progress] write failed for %s/%s: %v", p.UserID, p.MovieID, err)
	}
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
