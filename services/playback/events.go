package playback

// State is the playback session state machine position. Buffering is an
// overlay flag orthogonal to Playing/Paused, not a state of its own.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateSeeking State = "seeking"
)

// EventType names the media engine events the session controller consumes.
// They mirror the standard media element events, plus playrejected for an
// autoplay-policy play() rejection and fullscreenchange for externally
// triggered fullscreen exits.
type EventType string

const (
	EventCanPlay          EventType = "canplay"
	EventDurationChange   EventType = "durationchange"
	EventTimeUpdate       EventType = "timeupdate"
	EventPlay             EventType = "play"
	EventPause            EventType = "pause"
	EventPlaying          EventType = "playing"
	EventWaiting          EventType = "waiting"
	EventSeeking          EventType = "seeking"
	EventSeeked           EventType = "seeked"
	EventEnded            EventType = "ended"
	EventError            EventType = "error"
	EventVolumeChange     EventType = "volumechange"
	EventPlayRejected     EventType = "playrejected"
	EventFullscreenChange EventType = "fullscreenchange"
)

// Event is a single engine notification. Only the fields relevant to the
// event type are set.
type Event struct {
	Type             EventType `json:"type"`
	PositionSeconds  float64   `json:"positionSeconds,omitempty"`
	DurationSeconds  float64   `json:"durationSeconds,omitempty"`
	BufferedFraction float64   `json:"bufferedFraction,omitempty"`
	VolumeLevel      float64   `json:"volumeLevel,omitempty"`
	Muted            bool      `json:"muted,omitempty"`
	Fullscreen       bool      `json:"fullscreen,omitempty"`
	Message          string    `json:"message,omitempty"`
}
