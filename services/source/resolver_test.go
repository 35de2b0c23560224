package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cineplay/models"
)

func TestResolvePrefersPreResolvedMap(t *testing.T) {
	r := NewResolver()
	movie := models.Movie{
		ID:       "m1",
		VideoURL: "https://youtu.be/dQw4w9WgXcQ",
		VideoURLs: map[string]string{
			"720p": "https://vz-zzz-17b.b-cdn.net/v1/play_720p.mp4",
		},
		SourceType: models.ProviderBunny,
	}

	set, err := r.Resolve(movie)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if set.SourceType != models.ProviderBunny {
		t.Errorf("source type = %q, want pre-resolved bunny", set.SourceType)
	}
	if set.URLs["720p"] != movie.VideoURLs["720p"] {
		t.Errorf("720p = %q, want pre-resolved URL", set.URLs["720p"])
	}
	// Raw VideoURL backfills the original key.
	if set.URLs[models.QualityOriginal] != movie.VideoURL {
		t.Errorf("original = %q, want raw reference", set.URLs[models.QualityOriginal])
	}
}

func TestResolveFallsBackToClassification(t *testing.T) {
	r := NewResolver()
	movie := models.Movie{ID: "m2", VideoURL: "https://vz-abc-17b.b-cdn.net/v2/playlist.m3u8"}

	set, err := r.Resolve(movie)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if set.URLs[models.QualityHLS] != movie.VideoURL {
		t.Errorf("hls = %q, want raw reference", set.URLs[models.QualityHLS])
	}
}

func TestResolveEmptyReferenceIsNoPlayableSource(t *testing.T) {
	r := NewResolver()

	_, err := r.Resolve(models.Movie{ID: "m3"})
	if !errors.Is(err, ErrNoPlayableSource) {
		t.Fatalf("expected ErrNoPlayableSource, got %v", err)
	}
}

func TestResolveReferenceEncodesSpaces(t *testing.T) {
	r := NewResolver()

	set, err := r.ResolveReference("https://vz-abc-17b.b-cdn.net/my movie/playlist.m3u8")
	if err != nil {
		t.Fatalf("ResolveReference() error = %v", err)
	}
	want := "https://vz-abc-17b.b-cdn.net/my%20movie/playlist.m3u8"
	if set.URLs[models.QualityHLS] != want {
		t.Errorf("hls = %q, want %q", set.URLs[models.QualityHLS], want)
	}
}

func TestEnrichFillsDuration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/library/12345/videos/vid999" {
			t.Errorf("unexpected path %q", req.URL.Path)
		}
		json.NewEncoder(w).Encode(VideoMetadata{Title: "Enriched", Length: 5400})
	}))
	defer srv.Close()

	client := NewMetadataClient("test-key", srv.Client())
	client.baseURL = srv.URL

	r := NewResolver()
	r.SetMetadataClient(client)

	movie := models.Movie{
		ID:       "m4",
		VideoURL: "https://iframe.mediadelivery.net/embed/12345/vid999",
	}
	r.Enrich(context.Background(), &movie)

	if movie.DurationSeconds != 5400 {
		t.Errorf("duration = %v, want 5400", movie.DurationSeconds)
	}
	if movie.Title != "Enriched" {
		t.Errorf("title = %q, want Enriched", movie.Title)
	}
}

func TestEnrichSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewMetadataClient("test-key", srv.Client())
	client.baseURL = srv.URL

	r := NewResolver()
	r.SetMetadataClient(client)

	movie := models.Movie{
		ID:              "m5",
		DurationSeconds: 100,
		VideoURL:        "https://iframe.mediadelivery.net/embed/12345/gone",
	}
	r.Enrich(context.Background(), &movie)

	if movie.DurationSeconds != 100 {
		t.Errorf("duration mutated on failed enrichment: %v", movie.DurationSeconds)
	}
}
