package handlers

import (
	"encoding/json"
	"net/http"

	"cineplay/config"
)

// SettingsHandler exposes the server settings file.
type SettingsHandler struct {
	manager *config.Manager
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(manager *config.Manager) *SettingsHandler {
	return &SettingsHandler{manager: manager}
}

// Get returns the current settings.
// GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.manager.Load()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "Failed to load settings: " + err.Error(),
		})
		return
	}

	// Never leak the CDN API key over the wire.
	settings.Bunny.APIKey = ""

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// Update replaces the settings file. The stored API key is kept when the
// request omits it.
// PUT /api/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var incoming config.Settings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	if incoming.Bunny.APIKey == "" {
		current, err := h.manager.Load()
		if err == nil {
			incoming.Bunny.APIKey = current.Bunny.APIKey
		}
	}

	if err := h.manager.Save(incoming); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "Failed to save settings: " + err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}
