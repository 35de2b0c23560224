package models

// Provider identifies which video platform a media reference resolves to.
type Provider string

const (
	ProviderBunny       Provider = "bunny"
	ProviderYouTube     Provider = "youtube"
	ProviderDailymotion Provider = "dailymotion"
	ProviderUnknown     Provider = "unknown"
)

// IsPlatform returns true for embed-only providers (no direct media control).
func (p Provider) IsPlatform() bool {
	return p == ProviderYouTube || p == ProviderDailymotion
}

// Quality keys used in a CandidateSet. CDN references populate the ladder
// keys plus "hls"; platform references populate "embed" plus a provider key
// holding the canonical video ID. "original" is always present.
const (
	QualityOriginal = "original"
	QualityHLS      = "hls"
	Quality1080p    = "1080p"
	Quality720p     = "720p"
	Quality480p     = "480p"
	Quality360p     = "360p"
	QualityEmbed    = "embed"
)

// Classification is the result of classifying a raw media reference.
type Classification struct {
	Provider    Provider `json:"provider"`
	CanonicalID string   `json:"canonicalId,omitempty"`
	Reference   string   `json:"reference"`
}

// CandidateSet maps quality labels to playable URLs for a single reference.
type CandidateSet struct {
	URLs       map[string]string `json:"urls"`
	SourceType Provider          `json:"sourceType"`
}

// URL returns the candidate URL for the given quality key, falling back to
// "original" when the key is absent.
func (c CandidateSet) URL(quality string) string {
	if u, ok := c.URLs[quality]; ok && u != "" {
		return u
	}
	return c.URLs[QualityOriginal]
}

// HasPlayable reports whether the set contains any usable URL. An empty set,
// or a set whose only entry is an empty "original", is not playable.
func (c CandidateSet) HasPlayable() bool {
	for _, u := range c.URLs {
		if u != "" {
			return true
		}
	}
	return false
}

// Qualities returns the selectable quality keys present in the set, in ladder
// order. Provider-ID and "original"/"embed" keys are not selectable.
func (c CandidateSet) Qualities() []string {
	ladder := []string{Quality1080p, Quality720p, Quality480p, Quality360p, QualityHLS}
	var out []string
	for _, q := range ladder {
		if u, ok := c.URLs[q]; ok && u != "" {
			out = append(out, q)
		}
	}
	return out
}
