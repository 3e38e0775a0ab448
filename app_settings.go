package main

import (
	"log"
	"time"

	"trailforge-desktop/internal/backend"
	"trailforge-desktop/internal/config"
	"trailforge-desktop/internal/selection"
	"trailforge-desktop/internal/session"
)

// ===================
// Settings Management
// ===================

// GetSettings returns current user settings
func (a *App) GetSettings() (*config.UserSettings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Return a copy to prevent external modifications
	settingsCopy := *a.settings
	return &settingsCopy, nil
}

// SaveSettings saves user settings to disk and rebuilds the pieces that
// depend on them. A running job keeps its current backend and poll cadence
// until the session is reset.
func (a *App) SaveSettings(settings *config.UserSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// The install ID is not editable from the frontend
	settings.InstallID = a.settings.InstallID

	if err := config.SaveSettings(settings); err != nil {
		return err
	}

	backendChanged := settings.BackendURL != a.settings.BackendURL
	policyChanged := settings.MaxAreaDeg2 != a.settings.MaxAreaDeg2 ||
		settings.TileAreaDeg2 != a.settings.TileAreaDeg2 ||
		settings.PollIntervalSeconds != a.settings.PollIntervalSeconds

	a.settings = settings

	if backendChanged || policyChanged {
		a.rebuildSessionLocked()
	}

	log.Printf("Settings saved")
	return nil
}

// rebuildSessionLocked swaps in a controller matching the current settings,
// caller must hold a.mu. The old session is reset first so no poller
// outlives its controller.
func (a *App) rebuildSessionLocked() {
	a.session.Reset()

	a.client = backend.NewClient(a.settings.BackendURL)
	a.session = session.NewController(a.client, session.Options{
		Policy: selection.Policy{
			MaxAreaDeg2:  a.settings.MaxAreaDeg2,
			TileAreaDeg2: a.settings.TileAreaDeg2,
		},
		PollInterval: time.Duration(a.settings.PollIntervalSeconds) * time.Second,
	})
	if a.ctx != nil {
		a.wireSessionEvents(a.ctx)
	}

	log.Printf("Session rebuilt for backend %s", a.client.BaseURL())
}

// GetSettingsPath returns the OS-specific settings file path
func (a *App) GetSettingsPath() string {
	return config.GetSettingsPath()
}

// SaveMapPosition saves the current map position for session persistence
// Called on app close or periodically to remember the last viewed location
func (a *App) SaveMapPosition(lat, lon, zoom float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.settings.LastCenterLat = lat
	a.settings.LastCenterLon = lon
	a.settings.LastZoom = zoom

	if err := config.SaveSettings(a.settings); err != nil {
		return err
	}

	log.Printf("Saved map position: lat=%.6f, lon=%.6f, zoom=%.1f", lat, lon, zoom)
	return nil
}
