package models

// ResolveRequest asks the server to classify and expand a raw reference.
type ResolveRequest struct {
	Reference string `json:"reference"`
}

// ResolveResult is the outcome for a single reference.
type ResolveResult struct {
	Classification Classification `json:"classification"`
	Candidates     *CandidateSet  `json:"candidates,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// BatchResolveRequest carries multiple references to resolve in one call.
type BatchResolveRequest struct {
	References []string `json:"references"`
}

// BatchResolveResponse wraps the per-reference results of a batch resolve.
// Results are returned in request order.
type BatchResolveResponse struct {
	Results []ResolveResult `json:"results"`
}

// SessionMode distinguishes direct media-element playback from an opaque
// embedded frame.
type SessionMode string

const (
	SessionModeDirect SessionMode = "direct"
	SessionModeEmbed  SessionMode = "embed"
)

// OpenSessionRequest opens a playback session for a catalog movie.
type OpenSessionRequest struct {
	UserID   string `json:"userId"`
	MovieID  string `json:"movieId"`
	Autoplay bool   `json:"autoplay"`
}

// PlaybackSnapshot is the externally visible state of a playback session.
// Clients render their player from this; the server state machine is the
// single source of truth.
type PlaybackSnapshot struct {
	SessionID            string       `json:"sessionId"`
	MovieID              string       `json:"movieId"`
	Mode                 SessionMode  `json:"mode"`
	State                string       `json:"state"`
	IsPlaying            bool         `json:"isPlaying"`
	IsSeeking            bool         `json:"isSeeking"`
	IsBuffering          bool         `json:"isBuffering"`
	IsMuted              bool         `json:"isMuted"`
	IsFullscreen         bool         `json:"isFullscreen"`
	CSSFullscreen        bool         `json:"cssFullscreen,omitempty"`
	VolumeLevel          float64      `json:"volumeLevel"`
	CurrentTimeSeconds   float64      `json:"currentTimeSeconds"`
	DurationSeconds      float64      `json:"durationSeconds"`
	BufferedFraction     float64      `json:"bufferedFraction"`
	SelectedQuality      string       `json:"selectedQuality,omitempty"`
	ControlsVisible      bool         `json:"controlsVisible"`
	AwaitingResumeChoice bool         `json:"awaitingResumeChoice"`
	ResumeFraction       float64      `json:"resumeFraction,omitempty"`
	Ended                bool         `json:"ended"`
	PlaybackError        string       `json:"playbackError,omitempty"`
	Candidates           CandidateSet `json:"candidates"`
}

// EngineDirective is a command the session controller issues to the remote
// media engine. Directives are drained in order by the client.
type EngineDirective struct {
	Type            string  `json:"type"` // load | play | pause | seek | setVolume | setMuted | requestFullscreen | exitFullscreen
	URL             string  `json:"url,omitempty"`
	PositionSeconds float64 `json:"positionSeconds,omitempty"`
	VolumeLevel     float64 `json:"volumeLevel,omitempty"`
	Muted           bool    `json:"muted,omitempty"`
}
