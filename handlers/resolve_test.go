package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"cineplay/models"
	"cineplay/services/source"
)

func resolveRequest(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/playback/resolve", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestResolve_BunnyPlaylist(t *testing.T) {
	h := NewResolveHandler(source.NewResolver())

	rec := resolveRequest(t, h.Resolve, models.ResolveRequest{
		Reference: "https://vz-abc123-17b.b-cdn.net/video-1/playlist.m3u8",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ResolveResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.Equal(t, models.ProviderBunny, result.Classification.Provider)
	require.NotNil(t, result.Candidates)
	require.Equal(t, "https://vz-abc123-17b.b-cdn.net/video-1/playlist.m3u8", result.Candidates.URLs[models.QualityHLS])
	require.Contains(t, result.Candidates.URLs, models.Quality1080p)
}

func TestResolve_EmptyReference(t *testing.T) {
	h := NewResolveHandler(source.NewResolver())

	rec := resolveRequest(t, h.Resolve, models.ResolveRequest{Reference: "   "})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var result models.ResolveResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.Equal(t, models.ProviderUnknown, result.Classification.Provider)
	require.NotEmpty(t, result.Error)
}

func TestResolve_InvalidBody(t *testing.T) {
	h := NewResolveHandler(source.NewResolver())

	req := httptest.NewRequest(http.MethodPost, "/api/playback/resolve", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Resolve(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveBatch_PreservesRequestOrder(t *testing.T) {
	h := NewResolveHandler(source.NewResolver())

	refs := []string{
		"https://youtu.be/dQw4w9WgXcQ",
		"",
		"https://vz-lib-17b.b-cdn.net/vid/play_720p.mp4",
		"https://dai.ly/x8abcd1",
	}
	rec := resolveRequest(t, h.ResolveBatch, models.BatchResolveRequest{References: refs})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.BatchResolveResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, len(refs))

	require.Equal(t, models.ProviderYouTube, resp.Results[0].Classification.Provider)
	require.Equal(t, "dQw4w9WgXcQ", resp.Results[0].Classification.CanonicalID)

	require.Equal(t, models.ProviderUnknown, resp.Results[1].Classification.Provider)
	require.NotEmpty(t, resp.Results[1].Error)
	require.Nil(t, resp.Results[1].Candidates)

	require.Equal(t, models.ProviderBunny, resp.Results[2].Classification.Provider)
	require.NotNil(t, resp.Results[2].Candidates)

	require.Equal(t, models.ProviderDailymotion, resp.Results[3].Classification.Provider)
	require.Equal(t, "x8abcd1", resp.Results[3].Classification.CanonicalID)
}

func TestResolveBatch_EmptyAndOversized(t *testing.T) {
	h := NewResolveHandler(source.NewResolver())

	rec := resolveRequest(t, h.ResolveBatch, models.BatchResolveRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	refs := make([]string, maxBatchReferences+1)
	for i := range refs {
		refs[i] = "https://youtu.be/dQw4w9WgXcQ"
	}
	rec = resolveRequest(t, h.ResolveBatch, models.BatchResolveRequest{References: refs})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
