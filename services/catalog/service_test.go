package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"cineplay/models"
	"cineplay/services/source"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir(), source.NewResolver())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestUpsertGetDelete(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewService(dir, source.NewResolver())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	movie := models.Movie{
		ID:       "m1",
		Title:    "First",
		VideoURL: "https://vz-lib-17b.b-cdn.net/vid/playlist.m3u8",
	}
	if err := svc.Upsert(context.Background(), movie); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, ok := svc.Get("m1")
	if !ok || got.Title != "First" {
		t.Fatalf("Get returned %+v, ok=%v", got, ok)
	}

	// Persistence round-trip through a fresh instance.
	svc2, err := NewService(dir, source.NewResolver())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, ok := svc2.Get("m1"); !ok {
		t.Fatal("expected movie to survive reload")
	}

	if err := svc2.Delete("m1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := svc2.Delete("m1"); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	svc := newTestService(t)
	now := time.Now()

	for _, m := range []models.Movie{
		{ID: "old", Title: "Old", AddedAt: now.Add(-time.Hour)},
		{ID: "new", Title: "New", AddedAt: now},
	} {
		if err := svc.Upsert(context.Background(), m); err != nil {
			t.Fatalf("Upsert(%s) failed: %v", m.ID, err)
		}
	}

	list := svc.List()
	if len(list) != 2 || list[0].ID != "new" {
		t.Errorf("unexpected order: %+v", list)
	}
}

func TestResolveUsesRawReference(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Upsert(context.Background(), models.Movie{
		ID:       "m1",
		VideoURL: "https://vz-lib-17b.b-cdn.net/vid/playlist.m3u8",
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	set, err := svc.Resolve("m1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if set.SourceType != models.ProviderBunny {
		t.Errorf("source type = %s, want bunny", set.SourceType)
	}

	if _, err := svc.Resolve("missing"); !errors.Is(err, ErrMovieNotFound) {
		t.Errorf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestContinueWatchingDropsMissingMovies(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Upsert(context.Background(), models.Movie{ID: "m1", Title: "Kept"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	items := svc.ContinueWatching([]models.WatchProgress{
		{MovieID: "m1", Fraction: 0.5},
		{MovieID: "deleted", Fraction: 0.2},
	})

	if len(items) != 1 || items[0].Movie.ID != "m1" {
		t.Errorf("unexpected continue-watching items: %+v", items)
	}
}

func TestUpsertRejectsNonHTTPSchemes(t *testing.T) {
	svc := newTestService(t)

	err := svc.Upsert(context.Background(), models.Movie{
		ID:       "m1",
		VideoURL: "file:///etc/passwd",
	})
	if err == nil {
		t.Fatalf("expected scheme rejection")
	}

	err = svc.Upsert(context.Background(), models.Movie{
		ID: "m2",
		VideoURLs: map[string]string{
			"original": "data:text/plain,boom",
		},
	})
	if err == nil {
		t.Fatalf("expected scheme rejection for VideoURLs entry")
	}
}
