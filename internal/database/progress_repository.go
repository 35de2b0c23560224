package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cineplay/models"
)

// ProgressRepository persists per-(user, movie) watch progress rows.
// Writes are last-write-wins; there is no conflict resolution across
// devices.
type ProgressRepository struct {
	db *sql.DB
}

// Get returns the stored progress for a (user, movie) pair, or nil when no
// row exists.
func (r *ProgressRepository) Get(userID, movieID string) (*models.WatchProgress, error) {
	row := r.db.QueryRow(
		`SELECT user_id, movie_id, fraction, duration_seconds, updated_at
		 FROM watch_progress WHERE user_id = ? AND movie_id = ?`,
		userID, movieID,
	)

	var p models.WatchProgress
	err := row.Scan(&p.UserID, &p.MovieID, &p.Fraction, &p.DurationSeconds, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get watch progress: %w", err)
	}
	return &p, nil
}

// Upsert inserts or replaces the progress row for a (user, movie) pair.
func (r *ProgressRepository) Upsert(p models.WatchProgress) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO watch_progress (user_id, movie_id, fraction, duration_seconds, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, movie_id) DO UPDATE SET
		   fraction = excluded.fraction,
		   duration_seconds = excluded.duration_seconds,
		   updated_at = excluded.updated_at`,
		p.UserID, p.MovieID, p.Fraction, p.DurationSeconds, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert watch progress: %w", err)
	}
	return nil
}

// Delete removes the progress row for a (user, movie) pair. Deleting a
// missing row is not an error.
func (r *ProgressRepository) Delete(userID, movieID string) error {
	if _, err := r.db.Exec(
		`DELETE FROM watch_progress WHERE user_id = ? AND movie_id = ?`,
		userID, movieID,
	); err != nil {
		return fmt.Errorf("delete watch progress: %w", err)
	}
	return nil
}

// ListInProgress returns a user's partially watched rows (fraction strictly
// between 0 and the completion threshold), most recent first.
func (r *ProgressRepository) ListInProgress(userID string, completionThreshold float64) ([]models.WatchProgress, error) {
	rows, err := r.db.Query(
		`SELECT user_id, movie_id, fraction, duration_seconds, updated_at
		 FROM watch_progress
		 WHERE user_id = ? AND fraction > 0 AND fraction < ?
		 ORDER BY updated_at DESC`,
		userID, completionThreshold,
	)
	if err != nil {
		return nil, fmt.Errorf("list watch progress: %w", err)
	}
	defer rows.Close()

	var out []models.WatchProgress
	for rows.Next() {
		var p models.WatchProgress
		if err := rows.Scan(&p.UserID, &p.MovieID, &p.Fraction, &p.DurationSeconds, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan watch progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
