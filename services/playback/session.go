package playback

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"cineplay/models"
	"cineplay/services/progress"
)

var (
	ErrUnknownQuality     = errors.New("unknown quality key")
	ErrQualityUnavailable = errors.New("quality switching is unavailable for embedded sources")
)

// ProgressSink receives progress writes from a session. Implemented by
// the progress service; writes never block playback.
type ProgressSink interface {
	Report(userID, movieID string, fraction, durationSeconds float64)
	MarkCompleted(userID, movieID string, durationSeconds float64)
	Reset(userID, movieID string) error
}

// qualityRestore holds the position to seek back to once a freshly loaded
// source reports ready after a quality switch.
type qualityRestore struct {
	position   float64
	wasPlaying bool
}

// Session owns the transient state of one active play view. All mutation
// funnels through the event handler and the user-action methods, each of
// which holds the session lock; the state machine is the single source of
// truth and engine callbacks never mutate state directly.
type Session struct {
	ID         string
	UserID     string
	Movie      models.Movie
	Mode       models.SessionMode
	Candidates models.CandidateSet

	cfg      Config
	engine   Engine
	progress ProgressSink

	mu sync.Mutex

	state     State
	buffering bool
	ended     bool
	lastError string

	// Seeking bookkeeping. preSeekPlaying is the captured play state the
	// machine returns to when the seek completes; seekEpoch invalidates
	// grace/retry callbacks that outlive the seek (or the source) that
	// scheduled them.
	preSeekPlaying bool
	seekTarget     float64
	seekEpoch      int

	// One-shot resume offer. resumeOffered stays true for the life of the
	// mount so the prompt cannot re-trigger on later Ready transitions.
	resumeOffered  bool
	awaitingResume bool
	resumeFraction float64

	restore *qualityRestore

	currentTime float64
	duration    float64
	buffered    float64
	volume      float64
	muted       bool
	fullscreen  bool
	cssFS       bool
	quality     string
	autoplay    bool

	controlsVisible bool
	controlsTimer   *time.Timer
	graceTimer      *time.Timer

	lastActivity time.Time
	progressStop chan struct{}
	closed       bool
}

func newSession(id string, req models.OpenSessionRequest, movie models.Movie, mode models.SessionMode,
	candidates models.CandidateSet, engine Engine, sink ProgressSink, cfg Config, resumeFraction float64) *Session {

	s := &Session{
		ID:              id,
		UserID:          req.UserID,
		Movie:           movie,
		Mode:            mode,
		Candidates:      candidates,
		cfg:             cfg,
		engine:          engine,
		progress:        sink,
		state:           StateIdle,
		volume:          1,
		autoplay:        req.Autoplay,
		resumeFraction:  resumeFraction,
		controlsVisible: true,
		duration:        movie.DurationSeconds,
		lastActivity:    time.Now(),
		progressStop:    make(chan struct{}),
	}
	return s
}

// start loads the initial source and, for direct sessions, begins the
// periodic progress sampling loop.
func (s *Session) start(initialURL, quality string) {
	s.mu.Lock()
	s.quality = quality
	s.state = StateLoading
	s.engine.Load(initialURL)
	s.mu.Unlock()

	if s.Mode == models.SessionModeDirect {
		go s.progressLoop()
	}
}

// Engine exposes the session's engine; for HTTP sessions this is the
// directive queue the client drains.
func (s *Session) Engine() Engine {
	return s.engine
}

// Snapshot returns the externally visible state of the session.
func (s *Session) Snapshot() models.PlaybackSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.PlaybackSnapshot{
		SessionID:            s.ID,
		MovieID:              s.Movie.ID,
		Mode:                 s.Mode,
		State:                string(s.state),
		IsPlaying:            s.state == StatePlaying,
		IsSeeking:            s.state == StateSeeking,
		IsBuffering:          s.buffering,
		IsMuted:              s.muted,
		IsFullscreen:         s.fullscreen,
		CSSFullscreen:        s.cssFS,
		VolumeLevel:          s.volume,
		CurrentTimeSeconds:   s.currentTime,
		DurationSeconds:      s.duration,
		BufferedFraction:     s.buffered,
		SelectedQuality:      s.quality,
		ControlsVisible:      s.controlsVisible,
		AwaitingResumeChoice: s.awaitingResume,
		ResumeFraction:       s.resumeFraction,
		Ended:                s.ended,
		PlaybackError:        s.lastError,
		Candidates:           s.Candidates,
	}
}

// LastActivity reports when the session last saw an event or user action.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// HandleEvent feeds one engine event through the state machine.
func (s *Session) HandleEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.lastActivity = time.Now()

	switch ev.Type {
	case EventDurationChange:
		if ev.DurationSeconds > 0 {
			s.duration = ev.DurationSeconds
		}

	case EventCanPlay:
		s.handleCanPlayLocked(ev)

	case EventTimeUpdate:
		// A seek in flight owns the displayed position; regular samples
		// are suppressed until it completes.
		if s.state == StateSeeking {
			return
		}
		s.currentTime = ev.PositionSeconds
		if ev.DurationSeconds > 0 {
			s.duration = ev.DurationSeconds
		}
		if ev.BufferedFraction > 0 {
			s.buffered = clamp(ev.BufferedFraction, 0, 1)
		}

	case EventPlay:
		if s.state == StateReady || s.state == StatePaused {
			s.state = StatePlaying
			s.ended = false
			s.scheduleControlsHideLocked()
		}

	case EventPause:
		// Engines pause internally during seeks; only an actual
		// Playing -> Paused transition is user visible.
		if s.state == StatePlaying {
			s.state = StatePaused
			s.showControlsLocked()
		}

	case EventPlayRejected:
		// Autoplay policy refusal. Benign: stay paused and let the user
		// initiate playback.
		if s.state == StatePlaying {
			s.state = StatePaused
		}
		s.showControlsLocked()

	case EventWaiting:
		if s.state == StatePlaying || s.state == StatePaused || s.state == StateSeeking {
			s.buffering = true
			s.showControlsLocked()
		}

	case EventPlaying:
		s.buffering = false
		if s.state == StateReady || s.state == StatePaused {
			s.state = StatePlaying
		}
		if s.state == StatePlaying {
			s.scheduleControlsHideLocked()
		}

	case EventSeeking:
		// A scrub initiated outside our controls (native UI). Seeks we
		// issued already moved the machine to Seeking.
		if s.state == StatePlaying || s.state == StatePaused || s.state == StateReady {
			s.beginSeekLocked(ev.PositionSeconds, s.state == StatePlaying)
		}

	case EventSeeked:
		s.completeSeekLocked(ev)

	case EventEnded:
		// Ended is reachable only from Playing.
		if s.state != StatePlaying {
			return
		}
		s.ended = true
		s.state = StatePaused
		s.buffering = false
		if s.duration > 0 {
			s.currentTime = s.duration
		}
		s.showControlsLocked()
		s.progress.MarkCompleted(s.UserID, s.Movie.ID, s.duration)

	case EventError:
		msg := ev.Message
		if msg == "" {
			msg = "playback error"
		}
		s.lastError = msg
		s.buffering = false
		s.showControlsLocked()

	case EventVolumeChange:
		s.volume = clamp(ev.VolumeLevel, 0, 1)
		s.muted = ev.Muted

	case EventFullscreenChange:
		// Fullscreen exit can be triggered by browser chrome; resync.
		s.fullscreen = ev.Fullscreen
		if !ev.Fullscreen {
			s.cssFS = false
		}
	}
}

func (s *Session) handleCanPlayLocked(ev Event) {
	s.buffering = false
	if ev.DurationSeconds > 0 {
		s.duration = ev.DurationSeconds
	}

	if s.state != StateLoading {
		return
	}

	// A pending quality switch seeks back to the captured position once the
	// new source is ready, then restores the captured play state.
	if s.restore != nil {
		r := s.restore
		s.restore = nil
		s.state = StateReady
		s.beginSeekLocked(r.position, r.wasPlaying)
		return
	}

	s.state = StateReady

	if !s.resumeOffered && progress.ShouldOfferResume(s.resumeFraction) {
		s.resumeOffered = true
		s.awaitingResume = true
		s.showControlsLocked()
		return
	}

	s.autoplayLocked()
}

func (s *Session) autoplayLocked() {
	if !s.autoplay {
		s.showControlsLocked()
		return
	}
	if err := s.engine.Play(); err != nil {
		// Autoplay rejection: remain in Ready and let the user start.
		s.showControlsLocked()
		return
	}
	s.state = StatePlaying
	s.scheduleControlsHideLocked()
}

// TogglePlay inverts Playing/Paused. With no engine attached, or while the
// resume prompt is up, it is a no-op; a play() rejection is swallowed.
func (s *Session) TogglePlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.engine == nil || s.awaitingResume {
		return
	}
	s.lastActivity = time.Now()

	if s.ended {
		// Replay from the top.
		s.ended = false
		s.beginSeekLocked(0, true)
		return
	}

	switch s.state {
	case StatePlaying:
		s.engine.Pause()
		s.state = StatePaused
		s.showControlsLocked()
	case StatePaused, StateReady:
		if err := s.engine.Play(); err != nil {
			s.showControlsLocked()
			return
		}
		s.state = StatePlaying
		s.scheduleControlsHideLocked()
	}
}

// SeekTo seeks to an absolute position, clamped to [0, duration].
func (s *Session) SeekTo(positionSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.awaitingResume {
		return
	}
	s.lastActivity = time.Now()

	switch s.state {
	case StateReady, StatePlaying, StatePaused:
		s.beginSeekLocked(positionSeconds, s.state == StatePlaying)
	case StateSeeking:
		// A new seek during a seek keeps the originally captured play
		// state; only the target moves.
		s.beginSeekLocked(positionSeconds, s.preSeekPlaying)
	}
}

// SeekRelative skips by delta seconds (the fixed-size skip controls).
func (s *Session) SeekRelative(deltaSeconds float64) {
	s.mu.Lock()
	target := clamp(s.currentTime+deltaSeconds, 0, s.duration)
	s.mu.Unlock()
	s.SeekTo(target)
}

// beginSeekLocked captures the pre-seek play state, optimistically updates
// the displayed position, and issues pause+seek to the engine. The pause
// avoids stutter while the engine discards its pipeline; playback is
// restored after the seeked event.
func (s *Session) beginSeekLocked(target float64, wasPlaying bool) {
	target = clamp(target, 0, s.duration)

	s.preSeekPlaying = wasPlaying
	s.seekTarget = target
	s.seekEpoch++
	s.stopGraceTimerLocked()

	s.currentTime = target
	s.state = StateSeeking
	s.showControlsLocked()

	s.engine.Pause()
	s.engine.Seek(target)
}

// completeSeekLocked restores the captured play state once the engine
// confirms the seek. Resuming happens after a short grace delay so
// buffering can begin, and is retried once if the play() fails.
func (s *Session) completeSeekLocked(ev Event) {
	if s.state != StateSeeking {
		return
	}

	if ev.PositionSeconds > 0 {
		s.currentTime = ev.PositionSeconds
	} else {
		s.currentTime = s.seekTarget
	}

	if !s.preSeekPlaying {
		s.state = StatePaused
		s.showControlsLocked()
		return
	}

	s.state = StatePlaying
	s.scheduleControlsHideLocked()

	epoch := s.seekEpoch
	s.graceTimer = time.AfterFunc(s.cfg.SeekResumeGrace, func() {
		s.resumeAfterSeek(epoch)
	})
}

// resumeAfterSeek runs off the grace timer. The epoch check drops callbacks
// that outlived their seek: a newer seek, a quality switch, or teardown.
func (s *Session) resumeAfterSeek(epoch int) {
	s.mu.Lock()
	if s.closed || epoch != s.seekEpoch {
		s.mu.Unlock()
		return
	}
	engine := s.engine
	s.mu.Unlock()

	err := retry.Do(
		func() error { return engine.Play() },
		retry.Attempts(2),
		retry.Delay(s.cfg.SeekRetryDelay),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return
	}

	// Still failing after the retry: clear the buffering indicator and
	// leave the user in a manually resumable paused state.
	s.mu.Lock()
	if !s.closed && epoch == s.seekEpoch {
		log.Printf("[playback] resume after seek failed for session %s: %v", s.ID, err)
		s.state = StatePaused
		s.buffering = false
		s.showControlsLocked()
	}
	s.mu.Unlock()
}

// SetVolume clamps to [0,1]. Zero implies muted; any positive level while
// muted unmutes.
func (s *Session) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.lastActivity = time.Now()

	level = clamp(level, 0, 1)
	s.volume = level
	switch {
	case level == 0:
		s.muted = true
	case s.muted:
		s.muted = false
	}
	s.engine.SetVolume(level)
	s.engine.SetMuted(s.muted)
}

// ToggleMute flips the mute flag without touching the volume level.
func (s *Session) ToggleMute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.lastActivity = time.Now()
	s.muted = !s.muted
	s.engine.SetMuted(s.muted)
}

// ToggleFullscreen requests or exits fullscreen. A rejected request falls
// back to a CSS-only fullscreen visual state; the real flag resyncs via the
// fullscreenchange event.
func (s *Session) ToggleFullscreen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.lastActivity = time.Now()

	if s.fullscreen || s.cssFS {
		s.engine.ExitFullscreen()
		s.fullscreen = false
		s.cssFS = false
		return
	}

	if err := s.engine.RequestFullscreen(); err != nil {
		s.cssFS = true
		return
	}
	s.fullscreen = true
}

// SwitchQuality re-points the engine at the candidate URL for the given
// quality key, preserving the playback position. Only direct CDN sessions
// can switch. Any in-flight seek or buffering wait against the old source is
// cancelled outright rather than raced.
func (s *Session) SwitchQuality(quality string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.Mode != models.SessionModeDirect {
		return ErrQualityUnavailable
	}
	url, ok := s.Candidates.URLs[quality]
	if !ok || url == "" {
		return ErrUnknownQuality
	}
	if quality == s.quality {
		return nil
	}
	s.lastActivity = time.Now()

	wasPlaying := s.state == StatePlaying || (s.state == StateSeeking && s.preSeekPlaying)
	position := s.currentTime

	// Invalidate seek-completion callbacks from the old source.
	s.seekEpoch++
	s.stopGraceTimerLocked()
	s.buffering = false
	s.lastError = ""

	s.restore = &qualityRestore{position: position, wasPlaying: wasPlaying}
	s.quality = quality
	s.state = StateLoading
	s.showControlsLocked()
	s.engine.Load(url)
	return nil
}

// ChooseResume settles the resume/start-over prompt. Resume seeks to
// fraction*duration; start-over resets the stored progress and seeks to
// zero. Both then transition to Playing.
func (s *Session) ChooseResume(resume bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.awaitingResume {
		return
	}
	s.lastActivity = time.Now()
	s.awaitingResume = false

	if resume {
		s.beginSeekLocked(s.resumeFraction*s.duration, true)
		return
	}

	if err := s.progress.Reset(s.UserID, s.Movie.ID); err != nil {
		log.Printf("[playback] progress reset failed for session %s: %v", s.ID, err)
	}
	s.beginSeekLocked(0, true)
}

// Retry reloads the current quality after a playback error.
func (s *Session) Retry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.lastError == "" {
		return
	}
	s.lastActivity = time.Now()

	s.lastError = ""
	s.buffering = false
	s.seekEpoch++
	s.stopGraceTimerLocked()
	s.restore = &qualityRestore{position: s.currentTime, wasPlaying: true}
	s.state = StateLoading
	s.engine.Load(s.Candidates.URL(s.quality))
}

// Touch registers pointer/touch activity: controls show, and the auto-hide
// timer restarts while playing.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.lastActivity = time.Now()
	s.scheduleControlsHideLocked()
}

// HandleKey applies the keyboard contract. Embedded-frame sessions only
// honor fullscreen and escape; everything else is direct-media only.
// Returns false when the key closes the session (escape outside
// fullscreen) so the caller can tear it down.
func (s *Session) HandleKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))

	if s.Mode == models.SessionModeEmbed && key != "f" && key != "escape" {
		return true
	}

	switch key {
	case " ", "space", "k":
		s.TogglePlay()
	case "m":
		s.ToggleMute()
	case "arrowleft":
		s.SeekRelative(-10)
	case "arrowright":
		s.SeekRelative(10)
	case "f":
		s.ToggleFullscreen()
	case "escape":
		s.mu.Lock()
		fs := s.fullscreen || s.cssFS
		s.mu.Unlock()
		if fs {
			s.ToggleFullscreen()
			return true
		}
		return false
	}
	return true
}

// progressLoop samples the position every progress interval while the
// session is Playing and not Seeking. It exits when the session closes; the
// teardown flush happens strictly after the loop is stopped, so an interval
// write can never race the final one.
func (s *Session) progressLoop() {
	ticker := time.NewTicker(s.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.progressStop:
			return
		case <-ticker.C:
			s.mu.Lock()
			report := !s.closed && s.state == StatePlaying
			fraction := s.fractionLocked()
			duration := s.duration
			s.mu.Unlock()
			if report {
				s.progress.Report(s.UserID, s.Movie.ID, fraction, duration)
			}
		}
	}
}

// Close tears down the session: timers are cancelled and the progress loop
// stopped before the final flush is written.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopGraceTimerLocked()
	if s.controlsTimer != nil {
		s.controlsTimer.Stop()
		s.controlsTimer = nil
	}
	fraction := s.fractionLocked()
	duration := s.duration
	ended := s.ended
	s.mu.Unlock()

	close(s.progressStop)

	// Final flush of the last known position. The Ended write already
	// recorded 1.0; Report's suppression window keeps a teardown race from
	// downgrading it.
	if s.Mode == models.SessionModeDirect && !ended {
		s.progress.Report(s.UserID, s.Movie.ID, fraction, duration)
	}
}

func (s *Session) fractionLocked() float64 {
	if s.duration <= 0 {
		return 0
	}
	return clamp(s.currentTime/s.duration, 0, 1)
}

// showControlsLocked forces controls visible and cancels the auto-hide
// timer. Paused, Buffering, and Seeking all keep controls pinned.
func (s *Session) showControlsLocked() {
	s.controlsVisible = true
	if s.controlsTimer != nil {
		s.controlsTimer.Stop()
		s.controlsTimer = nil
	}
}

// scheduleControlsHideLocked shows controls and restarts the auto-hide
// timer, but only while Playing without a buffering or seeking overlay.
func (s *Session) scheduleControlsHideLocked() {
	s.controlsVisible = true
	if s.controlsTimer != nil {
		s.controlsTimer.Stop()
		s.controlsTimer = nil
	}
	if s.state != StatePlaying || s.buffering {
		return
	}
	s.controlsTimer = time.AfterFunc(s.cfg.ControlsHideDelay, func() {
		s.mu.Lock()
		if !s.closed && s.state == StatePlaying && !s.buffering {
			s.controlsVisible = false
		}
		s.mu.Unlock()
	})
}

func (s *Session) stopGraceTimerLocked() {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
