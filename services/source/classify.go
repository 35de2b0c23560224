package source

import (
	"net/url"
	"regexp"
	"strings"

	"cineplay/models"
)

// Domain fragments used to recognize providers in raw references. References
// that match nothing fall back to Bunny, since the catalog's predominant
// source is the CDN.
const (
	bunnyPullZoneFragment = "b-cdn.net"
	bunnyStorageFragment  = "bunnycdn.com"
	bunnyEmbedFragment    = "mediadelivery.net"

	youtubeDomainFragment = "youtube.com"
	youtubeShortFragment  = "youtu.be"

	dailymotionDomainFragment = "dailymotion.com"
	dailymotionShortFragment  = "dai.ly"
)

// bareYouTubeID matches a standalone 11-character YouTube video ID.
var bareYouTubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Classify determines which provider a raw media reference belongs to and
// extracts a canonical video ID where one is recognizable. It never fails:
// malformed URLs degrade to a Bunny direct-asset classification, and only an
// empty reference yields ProviderUnknown.
func Classify(reference string) models.Classification {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return models.Classification{Provider: models.ProviderUnknown, Reference: reference}
	}

	lower := strings.ToLower(ref)

	switch {
	case strings.HasSuffix(lower, ".m3u8"),
		strings.Contains(lower, bunnyPullZoneFragment),
		strings.Contains(lower, bunnyStorageFragment),
		strings.Contains(lower, bunnyEmbedFragment):
		return models.Classification{Provider: models.ProviderBunny, CanonicalID: bunnyVideoID(ref), Reference: ref}

	case strings.Contains(lower, youtubeDomainFragment),
		strings.Contains(lower, youtubeShortFragment),
		bareYouTubeID.MatchString(ref):
		return models.Classification{
			Provider:    models.ProviderYouTube,
			CanonicalID: youtubeID(ref),
			Reference:   ref,
		}

	case strings.Contains(lower, dailymotionDomainFragment),
		strings.Contains(lower, dailymotionShortFragment):
		return models.Classification{
			Provider:    models.ProviderDailymotion,
			CanonicalID: dailymotionID(ref),
			Reference:   ref,
		}
	}

	// Unrecognized references are treated as direct CDN asset links.
	return models.Classification{Provider: models.ProviderBunny, Reference: ref}
}

// youtubeID extracts the 11-character video ID from any of the recognized
// YouTube reference shapes: watch?v=ID, youtu.be/ID, /embed/ID, /shorts/ID,
// or a bare ID.
func youtubeID(ref string) string {
	if bareYouTubeID.MatchString(ref) {
		return ref
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	if v := u.Query().Get("v"); bareYouTubeID.MatchString(v) {
		return v
	}

	segments := pathSegments(u)
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, youtubeShortFragment) && len(segments) > 0 {
		if bareYouTubeID.MatchString(segments[0]) {
			return segments[0]
		}
	}
	for i, seg := range segments {
		if (seg == "embed" || seg == "shorts" || seg == "v") && i+1 < len(segments) {
			if bareYouTubeID.MatchString(segments[i+1]) {
				return segments[i+1]
			}
		}
	}
	return ""
}

// dailymotionID extracts the video ID from dailymotion.com/video/<id> or
// dai.ly/<id> references. The ID is the last path segment, with any
// title suffix after an underscore discarded.
func dailymotionID(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	segments := pathSegments(u)
	if len(segments) == 0 {
		return ""
	}
	id := segments[len(segments)-1]
	if idx := strings.Index(id, "_"); idx > 0 {
		id = id[:idx]
	}
	return id
}

// pathSegments splits a URL path into its non-empty segments.
func pathSegments(u *url.URL) []string {
	var out []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
