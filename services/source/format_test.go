package source

import (
	"reflect"
	"strings"
	"testing"

	"cineplay/models"
)

func TestFormatCandidatesHLSPlaylist(t *testing.T) {
	const ref = "https://vz-abc123-17b.b-cdn.net/vid999/playlist.m3u8"

	set := FormatCandidates(ref)
	if set.SourceType != models.ProviderBunny {
		t.Fatalf("source type = %q, want bunny", set.SourceType)
	}
	if set.URLs[models.QualityHLS] != ref {
		t.Errorf("hls = %q, want input", set.URLs[models.QualityHLS])
	}
	if set.URLs[models.QualityOriginal] != ref {
		t.Errorf("original = %q, want input", set.URLs[models.QualityOriginal])
	}

	const base = "https://vz-abc123-17b.b-cdn.net/vid999/"
	for _, q := range []string{"1080p", "720p", "480p", "360p"} {
		want := base + "play_" + q + ".mp4"
		if got := set.URLs[q]; got != want {
			t.Errorf("%s = %q, want %q", q, got, want)
		}
	}
}

func TestFormatCandidatesQualityMP4(t *testing.T) {
	const ref = "https://vz-abc123-17b.b-cdn.net/vid999/play_720p.mp4"

	set := FormatCandidates(ref)
	if set.URLs[models.Quality720p] != ref {
		t.Errorf("720p = %q, want input", set.URLs[models.Quality720p])
	}

	// Siblings derive by literal suffix substitution.
	for _, q := range []string{"1080p", "480p", "360p"} {
		want := strings.Replace(ref, "play_720p.mp4", "play_"+q+".mp4", 1)
		if got := set.URLs[q]; got != want {
			t.Errorf("%s = %q, want %q", q, got, want)
		}
	}
	wantHLS := strings.Replace(ref, "play_720p.mp4", "playlist.m3u8", 1)
	if got := set.URLs[models.QualityHLS]; got != wantHLS {
		t.Errorf("hls = %q, want %q", got, wantHLS)
	}
}

func TestFormatCandidatesEmbedPageSynthesis(t *testing.T) {
	for _, shape := range []string{
		"https://iframe.mediadelivery.net/embed/12345/vid999",
		"https://iframe.mediadelivery.net/play/12345/vid999",
	} {
		set := FormatCandidates(shape)
		const assetBase = "https://vz-12345-17b.b-cdn.net/vid999/"
		if got := set.URLs[models.QualityHLS]; got != assetBase+"playlist.m3u8" {
			t.Errorf("%s: hls = %q, want %q", shape, got, assetBase+"playlist.m3u8")
		}
		if got := set.URLs[models.Quality1080p]; got != assetBase+"play_1080p.mp4" {
			t.Errorf("%s: 1080p = %q, want %q", shape, got, assetBase+"play_1080p.mp4")
		}
	}
}

func TestFormatCandidatesYouTubeEmbed(t *testing.T) {
	set := FormatCandidates("https://youtu.be/dQw4w9WgXcQ")
	if set.SourceType != models.ProviderYouTube {
		t.Fatalf("source type = %q, want youtube", set.SourceType)
	}
	if set.URLs["youtube"] != "dQw4w9WgXcQ" {
		t.Errorf("youtube key = %q, want canonical ID", set.URLs["youtube"])
	}
	embed := set.URLs[models.QualityEmbed]
	if !strings.HasPrefix(embed, "https://www.youtube.com/embed/dQw4w9WgXcQ?") {
		t.Errorf("embed = %q, want youtube embed URL", embed)
	}
}

func TestFormatCandidatesUnrecognizedBunnyIsOriginalOnly(t *testing.T) {
	const ref = "https://storage.bunnycdn.com/zone/movie.webm"

	set := FormatCandidates(ref)
	if set.SourceType != models.ProviderBunny {
		t.Fatalf("source type = %q, want bunny", set.SourceType)
	}
	if len(set.URLs) != 1 || set.URLs[models.QualityOriginal] != ref {
		t.Errorf("expected original-only set, got %v", set.URLs)
	}
}

func TestFormatCandidatesEmptyReference(t *testing.T) {
	set := FormatCandidates("")
	if set.SourceType != models.ProviderUnknown {
		t.Fatalf("source type = %q, want unknown", set.SourceType)
	}
	if set.HasPlayable() {
		t.Error("empty reference must not be playable")
	}
}

func TestFormatCandidatesDeterministic(t *testing.T) {
	refs := []string{
		"https://vz-abc123-17b.b-cdn.net/vid999/playlist.m3u8",
		"https://iframe.mediadelivery.net/embed/12345/vid999",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://example.com/raw.mp4",
	}
	for _, ref := range refs {
		first := FormatCandidates(ref)
		second := FormatCandidates(ref)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("FormatCandidates(%q) not deterministic:\n%v\n%v", ref, first, second)
		}
	}
}
