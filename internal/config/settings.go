package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// Environment variables that override persisted settings. They mirror the
// limits the backend itself reads, so both sides can be kept in sync from one
// deployment environment.
const (
	EnvBackendURL   = "TRAILFORGE_BACKEND_URL"
	EnvMaxAreaDeg2  = "TRAILFORGE_MAX_AREA_DEG2"
	EnvTileAreaDeg2 = "TRAILFORGE_TILE_AREA_DEG2"
)

// UserSettings represents persistent user preferences
type UserSettings struct {
	// Backend connection
	BackendURL string `json:"backendUrl"`

	// Area limit policy, mirrored from the backend so oversized selections
	// are rejected before submission
	MaxAreaDeg2  float64 `json:"maxAreaDeg2"`
	TileAreaDeg2 float64 `json:"tileAreaDeg2"`

	// Job polling
	PollIntervalSeconds int `json:"pollIntervalSeconds"`

	// Search history
	MaxHistoryEntries int `json:"maxHistoryEntries"`

	// Download settings
	DownloadPath string `json:"downloadPath"`

	// Default map settings
	DefaultZoom      float64 `json:"defaultZoom"`
	DefaultCenterLat float64 `json:"defaultCenterLat"`
	DefaultCenterLon float64 `json:"defaultCenterLon"`

	// Last viewed map position, saved on close
	LastCenterLat float64 `json:"lastCenterLat"`
	LastCenterLon float64 `json:"lastCenterLon"`
	LastZoom      float64 `json:"lastZoom"`

	// Anonymous per-install identifier for analytics
	InstallID string `json:"installId"`
}

// DefaultSettings returns default user settings
func DefaultSettings() *UserSettings {
	homeDir, _ := os.UserHomeDir()
	downloadPath := filepath.Join(homeDir, "Downloads", "trailforge")

	return &UserSettings{
		BackendURL:          "http://localhost:8000",
		MaxAreaDeg2:         4.0,
		TileAreaDeg2:        0.25,
		PollIntervalSeconds: 2,
		MaxHistoryEntries:   10,
		DownloadPath:        downloadPath,
		DefaultZoom:         12,
		DefaultCenterLat:    47.3769, // Zurich
		DefaultCenterLon:    8.5417,
		InstallID:           uuid.NewString(),
	}
}

// GetSettingsDir returns the OS-specific settings directory, creating it if
// needed
func GetSettingsDir() string {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".trailforge", "desktop", "settings")
	os.MkdirAll(baseDir, 0755)
	return baseDir
}

// GetSettingsPath returns the settings file path
func GetSettingsPath() string {
	return filepath.Join(GetSettingsDir(), "settings.json")
}

// HistoryPath returns the search history file path
func HistoryPath() string {
	return filepath.Join(GetSettingsDir(), "search_history.json")
}

// LoadSettings loads user settings from disk, merging defaults for missing
// fields and applying environment overrides
func LoadSettings() (*UserSettings, error) {
	settingsPath := GetSettingsPath()

	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		settings := DefaultSettings()
		applyEnvOverrides(settings)
		return settings, nil
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	mergeDefaults(&settings)
	applyEnvOverrides(&settings)

	return &settings, nil
}

// mergeDefaults fills in defaults for any zero-valued fields
func mergeDefaults(settings *UserSettings) {
	defaults := DefaultSettings()
	if settings.BackendURL == "" {
		settings.BackendURL = defaults.BackendURL
	}
	if settings.MaxAreaDeg2 == 0 {
		settings.MaxAreaDeg2 = defaults.MaxAreaDeg2
	}
	if settings.TileAreaDeg2 == 0 {
		settings.TileAreaDeg2 = defaults.TileAreaDeg2
	}
	if settings.PollIntervalSeconds == 0 {
		settings.PollIntervalSeconds = defaults.PollIntervalSeconds
	}
	if settings.MaxHistoryEntries == 0 {
		settings.MaxHistoryEntries = defaults.MaxHistoryEntries
	}
	if settings.DownloadPath == "" {
		settings.DownloadPath = defaults.DownloadPath
	}
	if settings.DefaultZoom == 0 {
		settings.DefaultZoom = defaults.DefaultZoom
	}
	if settings.DefaultCenterLat == 0 && settings.DefaultCenterLon == 0 {
		settings.DefaultCenterLat = defaults.DefaultCenterLat
		settings.DefaultCenterLon = defaults.DefaultCenterLon
	}
	if settings.InstallID == "" {
		settings.InstallID = uuid.NewString()
	}
}

// applyEnvOverrides lets deployment environments pin the backend URL and the
// area limits without touching the settings file
func applyEnvOverrides(settings *UserSettings) {
	if url := os.Getenv(EnvBackendURL); url != "" {
		settings.BackendURL = url
	}
	if raw := os.Getenv(EnvMaxAreaDeg2); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			settings.MaxAreaDeg2 = v
		}
	}
	if raw := os.Getenv(EnvTileAreaDeg2); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			settings.TileAreaDeg2 = v
		}
	}
}

// SaveSettings saves user settings to disk
func SaveSettings(settings *UserSettings) error {
	settingsPath := GetSettingsPath()

	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// Validate checks settings before they are applied
func (s *UserSettings) Validate() error {
	if s.BackendURL == "" {
		return fmt.Errorf("backend URL cannot be empty")
	}
	if s.MaxAreaDeg2 <= 0 {
		return fmt.Errorf("max area must be positive")
	}
	if s.TileAreaDeg2 <= 0 || s.TileAreaDeg2 > s.MaxAreaDeg2 {
		return fmt.Errorf("tile area must be positive and at most the max area")
	}
	if s.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if s.MaxHistoryEntries <= 0 {
		return fmt.Errorf("history size must be positive")
	}
	if s.DownloadPath == "" {
		return fmt.Errorf("download path cannot be empty")
	}
	return nil
}
