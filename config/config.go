package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	ListenAddr string `json:"listenAddr"`
}

// PlaybackSettings holds the session timing knobs, in seconds or
// milliseconds as named. Zero values fall back to built-in defaults at the
// point of use.
type PlaybackSettings struct {
	Autoplay                bool `json:"autoplay"`
	ProgressIntervalSeconds int  `json:"progressIntervalSeconds"`
	ControlsHideSeconds     int  `json:"controlsHideSeconds"`
	SeekResumeGraceMillis   int  `json:"seekResumeGraceMillis"`
	SeekRetryDelayMillis    int  `json:"seekRetryDelayMillis"`
	SessionIdleMinutes      int  `json:"sessionIdleMinutes"`
}

// BunnySettings configures the optional Bunny Stream metadata enrichment.
type BunnySettings struct {
	APIKey            string `json:"apiKey,omitempty"`
	EnrichmentEnabled bool   `json:"enrichmentEnabled"`
}

// BackupSettings configures scheduled data backups.
type BackupSettings struct {
	Enabled  bool `json:"enabled"`
	MaxCount int  `json:"maxCount"`
}

// Settings is the persisted application configuration.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Playback PlaybackSettings `json:"playback"`
	Bunny    BunnySettings    `json:"bunny"`
	Backup   BackupSettings   `json:"backup"`
}

// DefaultSettings returns the configuration used when no settings file
// exists yet.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{ListenAddr: ":8275"},
		Playback: PlaybackSettings{
			Autoplay:                true,
			ProgressIntervalSeconds: 15,
			ControlsHideSeconds:     3,
			SeekResumeGraceMillis:   200,
			SeekRetryDelayMillis:    500,
			SessionIdleMinutes:      30,
		},
		Backup: BackupSettings{Enabled: true, MaxCount: 5},
	}
}

// Manager loads and saves the settings file with an atomic rename.
type Manager struct {
	mu   sync.Mutex
	path string
}

// NewManager creates a settings manager for the given file path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads the settings file, returning defaults when it does not exist.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// Save writes the settings file atomically.
func (m *Manager) Save(settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings temp file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}
