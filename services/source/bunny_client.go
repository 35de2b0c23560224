package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// Minimal Bunny Stream API client (video metadata endpoint only).

const defaultBunnyAPIBase = "https://video.bunnycdn.com"

// VideoMetadata is the subset of the Bunny video object we consume.
type VideoMetadata struct {
	Title                string `json:"title"`
	Length               int    `json:"length"` // seconds
	Status               int    `json:"status"`
	ThumbnailFileName    string `json:"thumbnailFileName"`
	AvailableResolutions string `json:"availableResolutions"`
}

// MetadataClient fetches video metadata from the Bunny Stream API.
type MetadataClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// NewMetadataClient creates a metadata client. A nil http client gets a
// 10 second timeout default.
func NewMetadataClient(apiKey string, httpc *http.Client) *MetadataClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &MetadataClient{
		apiKey:  apiKey,
		baseURL: defaultBunnyAPIBase,
		httpc:   httpc,
	}
}

// Video fetches metadata for a single video. Transient failures are retried
// a bounded number of times; a 404 fails immediately.
func (c *MetadataClient) Video(ctx context.Context, libraryID, videoID string) (*VideoMetadata, error) {
	endpoint := fmt.Sprintf("%s/library/%s/videos/%s",
		c.baseURL, url.PathEscape(libraryID), url.PathEscape(videoID))

	var meta VideoMetadata
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			if c.apiKey != "" {
				req.Header.Set("AccessKey", c.apiKey)
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(fmt.Errorf("video %s/%s not found", libraryID, videoID))
			case resp.StatusCode != http.StatusOK:
				return fmt.Errorf("bunny api status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&meta)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// bunnyLibraryID recovers the library ID from a pull-zone hostname of the
// form vz-{libraryId}-17b.b-cdn.net, or from an embed/play page path.
func bunnyLibraryID(reference string) string {
	u, err := url.Parse(reference)
	if err != nil {
		return ""
	}

	if lib, _ := parseBunnyEmbedPath(pathSegments(u)); lib != "" {
		return lib
	}

	host := strings.ToLower(u.Hostname())
	if !strings.HasPrefix(host, "vz-") || !strings.HasSuffix(host, ".b-cdn.net") {
		return ""
	}
	zone := strings.TrimSuffix(strings.TrimPrefix(host, "vz-"), ".b-cdn.net")
	// Zone names carry a region suffix after the last dash (e.g. abc123-17b).
	if idx := strings.LastIndex(zone, "-"); idx > 0 {
		return zone[:idx]
	}
	return ""
}
