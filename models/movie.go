package models

import "time"

// Movie is a catalog entry. VideoURL is the raw stored reference (may be a
// full URL, an embed URL, a bare platform ID, or empty). VideoURLs and
// SourceType are optionally pre-resolved by an upstream importer; when
// present they take precedence over classifying VideoURL again.
type Movie struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Overview        string            `json:"overview,omitempty"`
	Year            int               `json:"year,omitempty"`
	Genres          []string          `json:"genres,omitempty"`
	PosterURL       string            `json:"posterUrl,omitempty"`
	BackdropURL     string            `json:"backdropUrl,omitempty"`
	DurationSeconds float64           `json:"durationSeconds,omitempty"`
	Premium         bool              `json:"premium,omitempty"`
	VideoURL        string            `json:"videoUrl,omitempty"`
	VideoURLs       map[string]string `json:"videoUrls,omitempty"`
	SourceType      Provider          `json:"sourceType,omitempty"`
	AddedAt         time.Time         `json:"addedAt,omitempty"`
}

// HasPreResolvedURLs reports whether the importer already attached a
// candidate URL map to this movie.
func (m Movie) HasPreResolvedURLs() bool {
	for _, u := range m.VideoURLs {
		if u != "" {
			return true
		}
	}
	return false
}

// ContinueWatchingItem joins a partially watched movie with its progress.
type ContinueWatchingItem struct {
	Movie     Movie     `json:"movie"`
	Fraction  float64   `json:"fraction"`
	UpdatedAt time.Time `json:"updatedAt"`
}
