package playback_test

import (
	"errors"
	"testing"

	"cineplay/models"
	"cineplay/services/playback"
	"cineplay/services/progress"
	"cineplay/services/source"
)

type stubCatalog struct {
	movies map[string]models.Movie
}

func (c *stubCatalog) Get(id string) (models.Movie, bool) {
	m, ok := c.movies[id]
	return m, ok
}

type nullRepo struct{}

func (nullRepo) Get(string, string) (*models.WatchProgress, error) { return nil, nil }
func (nullRepo) Upsert(models.WatchProgress) error                 { return nil }
func (nullRepo) Delete(string, string) error                       { return nil }
func (nullRepo) ListInProgress(string, float64) ([]models.WatchProgress, error) {
	return nil, nil
}

func setupService(t *testing.T) (*playback.Service, *stubCatalog) {
	t.Helper()

	catalog := &stubCatalog{movies: map[string]models.Movie{
		"cdn-movie": {
			ID:       "cdn-movie",
			Title:    "CDN Movie",
			VideoURL: "https://vz-lib-17b.b-cdn.net/vid999/playlist.m3u8",
		},
		"yt-movie": {
			ID:       "yt-movie",
			Title:    "YouTube Movie",
			VideoURL: "https://youtu.be/dQw4w9WgXcQ",
		},
		"no-source": {
			ID:    "no-source",
			Title: "Broken Import",
		},
	}}

	svc := playback.NewService(source.NewResolver(), catalog, progress.NewService(nullRepo{}), playback.Config{})
	t.Cleanup(svc.Shutdown)
	return svc, catalog
}

func TestOpenDirectSession(t *testing.T) {
	svc, _ := setupService(t)

	session, err := svc.Open(models.OpenSessionRequest{UserID: "u1", MovieID: "cdn-movie", Autoplay: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	snap := session.Snapshot()
	if snap.Mode != models.SessionModeDirect {
		t.Errorf("mode = %s, want direct", snap.Mode)
	}
	if snap.State != string(playback.StateLoading) {
		t.Errorf("state = %s, want loading", snap.State)
	}
	if snap.SelectedQuality != models.QualityHLS {
		t.Errorf("initial quality = %s, want hls", snap.SelectedQuality)
	}

	// The first directive loads the default source.
	engine := session.Engine().(*playback.DirectiveEngine)
	directives := engine.Drain()
	if len(directives) == 0 || directives[0].Type != "load" {
		t.Fatalf("expected a load directive first, got %+v", directives)
	}
}

func TestOpenEmbedSessionForPlatformSource(t *testing.T) {
	svc, _ := setupService(t)

	session, err := svc.Open(models.OpenSessionRequest{UserID: "u1", MovieID: "yt-movie"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if session.Mode != models.SessionModeEmbed {
		t.Errorf("mode = %s, want embed", session.Mode)
	}
}

func TestOpenUnknownMovie(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Open(models.OpenSessionRequest{UserID: "u1", MovieID: "nope"})
	if !errors.Is(err, playback.ErrMovieNotFound) {
		t.Errorf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestOpenWithoutPlayableSource(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Open(models.OpenSessionRequest{UserID: "u1", MovieID: "no-source"})
	if !errors.Is(err, source.ErrNoPlayableSource) {
		t.Errorf("expected ErrNoPlayableSource, got %v", err)
	}
}

func TestGetAndClose(t *testing.T) {
	svc, _ := setupService(t)

	session, err := svc.Open(models.OpenSessionRequest{UserID: "u1", MovieID: "cdn-movie"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	got, err := svc.Get(session.ID)
	if err != nil || got.ID != session.ID {
		t.Fatalf("Get failed: %v", err)
	}

	if err := svc.Close(session.ID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := svc.Get(session.ID); !errors.Is(err, playback.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after close, got %v", err)
	}
	if err := svc.Close(session.ID); !errors.Is(err, playback.ErrSessionNotFound) {
		t.Errorf("double close: expected ErrSessionNotFound, got %v", err)
	}
	if svc.Count() != 0 {
		t.Errorf("count = %d, want 0", svc.Count())
	}
}
