package playback

import (
	"sync"

	"cineplay/models"
)

// Engine is the session controller's view of the underlying media engine.
// For direct CDN playback this is a native media element on the client; for
// platform sources it is an opaque embedded frame that honors load and
// fullscreen only. Play may report a rejection (autoplay policy); all other
// commands are fire and forget.
type Engine interface {
	Load(url string)
	Play() error
	Pause()
	Seek(positionSeconds float64)
	SetVolume(level float64)
	SetMuted(muted bool)
	RequestFullscreen() error
	ExitFullscreen()
}

// DirectiveEngine queues engine commands for a remote player. The client
// drains the queue in order and applies each directive to its media element;
// results (including autoplay rejections) come back as engine events.
type DirectiveEngine struct {
	mu    sync.Mutex
	queue []models.EngineDirective
}

// NewDirectiveEngine creates an empty directive queue.
func NewDirectiveEngine() *DirectiveEngine {
	return &DirectiveEngine{}
}

// Drain returns all pending directives and clears the queue.
func (e *DirectiveEngine) Drain() []models.EngineDirective {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.queue
	e.queue = nil
	return out
}

func (e *DirectiveEngine) push(d models.EngineDirective) {
	e.mu.Lock()
	e.queue = append(e.queue, d)
	e.mu.Unlock()
}

func (e *DirectiveEngine) Load(url string) {
	e.push(models.EngineDirective{Type: "load", URL: url})
}

// Play queues the play directive. A remote play() rejection surfaces later
// as a playrejected event, so this never errors.
func (e *DirectiveEngine) Play() error {
	e.push(models.EngineDirective{Type: "play"})
	return nil
}

func (e *DirectiveEngine) Pause() {
	e.push(models.EngineDirective{Type: "pause"})
}

func (e *DirectiveEngine) Seek(positionSeconds float64) {
	e.push(models.EngineDirective{Type: "seek", PositionSeconds: positionSeconds})
}

func (e *DirectiveEngine) SetVolume(level float64) {
	e.push(models.EngineDirective{Type: "setVolume", VolumeLevel: level})
}

func (e *DirectiveEngine) SetMuted(muted bool) {
	e.push(models.EngineDirective{Type: "setMuted", Muted: muted})
}

func (e *DirectiveEngine) RequestFullscreen() error {
	e.push(models.EngineDirective{Type: "requestFullscreen"})
	return nil
}

func (e *DirectiveEngine) ExitFullscreen() {
	e.push(models.EngineDirective{Type: "exitFullscreen"})
}
