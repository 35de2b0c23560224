package models

import "time"

// WatchProgress records how far a user got through a movie, as a fraction of
// its duration in [0, 1]. One row per (user, movie); last write wins.
type WatchProgress struct {
	UserID          string    `json:"userId"`
	MovieID         string    `json:"movieId"`
	Fraction        float64   `json:"fraction"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Completed reports whether the movie is effectively finished.
func (p WatchProgress) Completed() bool {
	return p.Fraction >= 0.95
}

// ProgressUpdate is the payload for a direct progress write from a client.
type ProgressUpdate struct {
	Fraction        float64 `json:"fraction"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}
