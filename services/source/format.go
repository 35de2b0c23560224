package source

import (
	"fmt"
	"net/url"
	"strings"

	"cineplay/models"
)

// qualityLadder lists the MP4 renditions Bunny generates alongside the HLS
// playlist for every video.
var qualityLadder = []string{
	models.Quality1080p,
	models.Quality720p,
	models.Quality480p,
	models.Quality360p,
}

const (
	playlistFilename = "playlist.m3u8"

	// pullZoneHostTemplate reconstructs the CDN hostname from a library ID
	// extracted out of an embed/play page URL.
	pullZoneHostTemplate = "vz-%s-17b.b-cdn.net"

	youtubeEmbedTemplate     = "https://www.youtube.com/embed/%s?autoplay=1&rel=0&modestbranding=1"
	dailymotionEmbedTemplate = "https://www.dailymotion.com/embed/video/%s?autoplay=1"
)

// FormatCandidates expands a raw reference into the full set of candidate
// playable URLs. It is a pure function of the reference and the fixed URL
// templates: the same input always yields the same set, no network I/O is
// performed, and the result always carries at least the "original" key.
func FormatCandidates(reference string) models.CandidateSet {
	c := Classify(reference)

	switch c.Provider {
	case models.ProviderYouTube, models.ProviderDailymotion:
		return platformCandidates(c)
	case models.ProviderBunny:
		return bunnyCandidates(c.Reference)
	}

	return models.CandidateSet{
		URLs:       map[string]string{models.QualityOriginal: reference},
		SourceType: models.ProviderUnknown,
	}
}

// platformCandidates builds the embed-only candidate set for YouTube and
// Dailymotion references. The provider key carries the canonical ID so
// clients can construct platform-specific players without reparsing.
func platformCandidates(c models.Classification) models.CandidateSet {
	urls := map[string]string{models.QualityOriginal: c.Reference}
	if c.CanonicalID != "" {
		urls[string(c.Provider)] = c.CanonicalID
		switch c.Provider {
		case models.ProviderYouTube:
			urls[models.QualityEmbed] = fmt.Sprintf(youtubeEmbedTemplate, c.CanonicalID)
		case models.ProviderDailymotion:
			urls[models.QualityEmbed] = fmt.Sprintf(dailymotionEmbedTemplate, c.CanonicalID)
		}
	}
	return models.CandidateSet{URLs: urls, SourceType: c.Provider}
}

// bunnyCandidates expands a CDN reference into the quality-keyed URL set.
// Direct asset URLs (playlist or a known MP4 rendition) derive their
// siblings by filename substitution on the same base path; embed/play page
// URLs are reduced to a {library, video} pair and synthesized against the
// pull-zone host template. Anything unrecognizable degrades to "original"
// only, never an error.
func bunnyCandidates(ref string) models.CandidateSet {
	set := models.CandidateSet{
		URLs:       map[string]string{models.QualityOriginal: ref},
		SourceType: models.ProviderBunny,
	}

	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return set
	}

	segments := pathSegments(u)
	if len(segments) == 0 {
		return set
	}
	last := segments[len(segments)-1]
	base := u.Scheme + "://" + u.Host
	if len(segments) > 1 {
		base += "/" + strings.Join(segments[:len(segments)-1], "/")
	}

	switch {
	case strings.HasSuffix(strings.ToLower(last), ".m3u8"):
		set.URLs[models.QualityHLS] = ref
		for _, q := range qualityLadder {
			set.URLs[q] = base + "/play_" + q + ".mp4"
		}

	case qualityFromFilename(last) != "":
		have := qualityFromFilename(last)
		set.URLs[have] = ref
		for _, q := range qualityLadder {
			if q == have {
				continue
			}
			set.URLs[q] = strings.Replace(ref, "play_"+have+".mp4", "play_"+q+".mp4", 1)
		}
		set.URLs[models.QualityHLS] = strings.Replace(ref, "play_"+have+".mp4", playlistFilename, 1)

	default:
		lib, vid := parseBunnyEmbedPath(segments)
		if lib == "" || vid == "" {
			return set
		}
		host := fmt.Sprintf(pullZoneHostTemplate, lib)
		assetBase := "https://" + host + "/" + vid
		set.URLs[models.QualityHLS] = assetBase + "/" + playlistFilename
		for _, q := range qualityLadder {
			set.URLs[q] = assetBase + "/play_" + q + ".mp4"
		}
	}

	return set
}

// qualityFromFilename returns the quality label for a play_{quality}.mp4
// filename, or "" when the name is not a known rendition.
func qualityFromFilename(name string) string {
	for _, q := range qualityLadder {
		if name == "play_"+q+".mp4" {
			return q
		}
	}
	return ""
}

// parseBunnyEmbedPath extracts the {library, video} pair from embed or play
// page path shapes: /embed/{lib}/{id} and /play/{lib}/{id}. Parsing is
// segment based so extra leading segments or trailing junk do not confuse
// the extraction.
func parseBunnyEmbedPath(segments []string) (libraryID, videoID string) {
	for i, seg := range segments {
		if (seg == "embed" || seg == "play") && i+2 <= len(segments)-1 {
			return segments[i+1], segments[i+2]
		}
	}
	return "", ""
}

// bunnyVideoID pulls the video GUID out of a CDN reference when the path
// shape makes one recognizable: the parent directory of a direct asset file,
// or the last segment of an embed/play page URL.
func bunnyVideoID(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	segments := pathSegments(u)
	if len(segments) == 0 {
		return ""
	}

	if _, vid := parseBunnyEmbedPath(segments); vid != "" {
		return vid
	}

	last := strings.ToLower(segments[len(segments)-1])
	if len(segments) >= 2 && (strings.HasSuffix(last, ".m3u8") || qualityFromFilename(segments[len(segments)-1]) != "") {
		return segments[len(segments)-2]
	}
	return ""
}
