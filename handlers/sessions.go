package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"cineplay/models"
	"cineplay/services/playback"
	"cineplay/services/source"
)

// SessionsHandler handles playback session endpoints. The session state
// machine lives server side; clients post engine events and player actions
// and drain directives to apply to their media element.
type SessionsHandler struct {
	playback *playback.Service
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(playbackSvc *playback.Service) *SessionsHandler {
	return &SessionsHandler{playback: playbackSvc}
}

// ActionRequest represents a player control action.
type ActionRequest struct {
	Action          string  `json:"action"`
	PositionSeconds float64 `json:"positionSeconds,omitempty"`
	DeltaSeconds    float64 `json:"deltaSeconds,omitempty"`
	VolumeLevel     float64 `json:"volumeLevel,omitempty"`
	Quality         string  `json:"quality,omitempty"`
	Resume          bool    `json:"resume,omitempty"`
	Key             string  `json:"key,omitempty"`
}

// Open opens a playback session for a catalog movie.
// POST /api/playback/sessions
func (h *SessionsHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req models.OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	session, err := h.playback.Open(req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, playback.ErrMovieNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, source.ErrNoPlayableSource) {
			status = http.StatusUnprocessableEntity
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session.Snapshot())
}

// Get returns the current session snapshot.
// GET /api/playback/sessions/{id}
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.Snapshot())
}

// Events feeds a batch of media engine events into the session state
// machine, in order, and returns the resulting snapshot.
// POST /api/playback/sessions/{id}/events
func (h *SessionsHandler) Events(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var events []playback.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	for _, ev := range events {
		session.HandleEvent(ev)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.Snapshot())
}

// Action applies a player control action and returns the resulting snapshot.
// POST /api/playback/sessions/{id}/actions
func (h *SessionsHandler) Action(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	handled := true
	switch req.Action {
	case "togglePlay":
		session.TogglePlay()
	case "seekTo":
		session.SeekTo(req.PositionSeconds)
	case "seekRelative":
		session.SeekRelative(req.DeltaSeconds)
	case "setVolume":
		session.SetVolume(req.VolumeLevel)
	case "toggleMute":
		session.ToggleMute()
	case "toggleFullscreen":
		session.ToggleFullscreen()
	case "switchQuality":
		if err := session.SwitchQuality(req.Quality); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, playback.ErrQualityUnavailable) {
				status = http.StatusConflict
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
	case "chooseResume":
		session.ChooseResume(req.Resume)
	case "retry":
		session.Retry()
	case "touch":
		session.Touch()
	case "key":
		handled = session.HandleKey(req.Key)
	default:
		http.Error(w, `{"error": "unknown action"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"handled":  handled,
		"snapshot": session.Snapshot(),
	})
}

// Directives drains the pending engine directives for the session. Each
// directive is returned exactly once, in issue order.
// POST /api/playback/sessions/{id}/directives
func (h *SessionsHandler) Directives(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	directives := []models.EngineDirective{}
	if engine, ok := session.Engine().(*playback.DirectiveEngine); ok {
		directives = engine.Drain()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"directives": directives,
	})
}

// Close tears the session down, flushing a final progress sample for direct
// sessions.
// DELETE /api/playback/sessions/{id}
func (h *SessionsHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.playback.Close(id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, playback.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

func (h *SessionsHandler) lookup(w http.ResponseWriter, r *http.Request) (*playback.Session, bool) {
	id := mux.Vars(r)["id"]
	session, err := h.playback.Get(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, playback.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return nil, false
	}
	return session, true
}
