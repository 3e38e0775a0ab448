package main

import (
	"context"
	"fmt"
	"log"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/posthog/posthog-go"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"trailforge-desktop/internal/backend"
	"trailforge-desktop/internal/config"
	"trailforge-desktop/internal/history"
	"trailforge-desktop/internal/selection"
	"trailforge-desktop/internal/session"
)

// Linker flags
var (
	PostHogKey  string
	PostHogHost string
	AppVersion  string = "0.0.0-dev"
)

// App struct
type App struct {
	ctx       context.Context
	client    *backend.Client
	session   *session.Controller
	history   *history.Store
	settings  *config.UserSettings
	mu        sync.Mutex
	devMode   bool // Enable verbose logging in dev mode only
	phClient  posthog.Client
	installID string
}

// NewApp creates a new App application struct
func NewApp() *App {
	// Load user settings
	settings, err := config.LoadSettings()
	if err != nil {
		log.Printf("Failed to load settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}
	log.Printf("Settings loaded from: %s", config.GetSettingsPath())

	client := backend.NewClient(settings.BackendURL)
	log.Printf("Backend client configured for %s", client.BaseURL())

	controller := session.NewController(client, session.Options{
		Policy: selection.Policy{
			MaxAreaDeg2:  settings.MaxAreaDeg2,
			TileAreaDeg2: settings.TileAreaDeg2,
		},
		PollInterval: time.Duration(settings.PollIntervalSeconds) * time.Second,
	})

	historyStore := history.NewStore(config.HistoryPath(), settings.MaxHistoryEntries)

	// Initialize PostHog
	var phClient posthog.Client
	if PostHogKey != "" {
		phConfig := posthog.Config{
			Endpoint: PostHogHost,
		}
		ph, err := posthog.NewWithConfig(PostHogKey, phConfig)
		if err != nil {
			log.Printf("Failed to initialize PostHog: %v", err)
		} else {
			phClient = ph
		}
	}

	return &App{
		client:    client,
		session:   controller,
		history:   historyStore,
		settings:  settings,
		phClient:  phClient,
		installID: settings.InstallID,
	}
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	// Wire session events to the frontend
	a.wireSessionEvents(ctx)

	// Probe the backend in the background
	go func() {
		client := a.currentClient()
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Health(probeCtx); err != nil {
			wailsRuntime.LogError(ctx, fmt.Sprintf("Backend health check failed: %v", err))
		} else {
			wailsRuntime.LogInfo(ctx, "Backend reachable at "+client.BaseURL())
		}
	}()

	// Track app start
	a.TrackEvent("app_started", map[string]interface{}{
		"version": a.GetAppVersion(),
		"os":      goruntime.GOOS,
		"arch":    goruntime.GOARCH,
	})
}

// currentSession returns the active session controller. SaveSettings can
// swap the controller, so bound methods go through this accessor.
func (a *App) currentSession() *session.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// currentClient returns the active backend client
func (a *App) currentClient() *backend.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

// wireSessionEvents forwards controller callbacks as frontend events
func (a *App) wireSessionEvents(ctx context.Context) {
	a.session.SetCallbacks(
		func(snap session.Snapshot) {
			wailsRuntime.EventsEmit(ctx, "session-state", snap)
		},
		func(job session.Job) {
			a.debugLog("Job %s: %s %s", job.ID, job.Status, job.Progress)
			wailsRuntime.EventsEmit(ctx, "job-update", job)
			switch job.Status {
			case backend.JobCompleted:
				a.TrackEvent("job_completed", map[string]interface{}{
					"filename":  job.Filename,
					"file_size": job.FileSize,
				})
			case backend.JobFailed:
				a.TrackEvent("job_failed", map[string]interface{}{
					"error": job.Error,
				})
			}
		},
	)
}

// debugLog logs verbose messages in dev mode only
func (a *App) debugLog(format string, args ...interface{}) {
	if a.devMode {
		log.Printf(format, args...)
	}
}

// TrackEvent sends an event to PostHog
func (a *App) TrackEvent(event string, props map[string]interface{}) {
	if a.phClient != nil {
		a.phClient.Enqueue(posthog.Capture{
			DistinctId: a.installID,
			Event:      event,
			Properties: props,
		})
	}
}

// Shutdown cleans up resources
func (a *App) Shutdown(ctx context.Context) {
	a.currentSession().Reset()
	if a.phClient != nil {
		a.phClient.Close()
	}
}

// GetAppVersion returns the current application version
func (a *App) GetAppVersion() string {
	return AppVersion
}

// ===================
// Session Workflow
// ===================

// GetSessionState returns the current session snapshot for initial render
func (a *App) GetSessionState() session.Snapshot {
	return a.currentSession().Snapshot()
}

// SetSelection replaces the current area selection with a user-drawn box
func (a *App) SetSelection(bbox selection.BoundingBox) (session.Snapshot, error) {
	sess := a.currentSession()
	if err := sess.SetSelection(bbox); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

// ClearSelection removes the current area selection
func (a *App) ClearSelection() (session.Snapshot, error) {
	sess := a.currentSession()
	if err := sess.ClearSelection(); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

// Generate submits the current selection as a map-generation job. Progress
// is delivered through session-state and job-update events.
func (a *App) Generate() error {
	sess := a.currentSession()
	if err := sess.Generate(); err != nil {
		return err
	}
	a.TrackEvent("generate_submitted", map[string]interface{}{
		"classification": string(sess.Snapshot().Classification.Kind),
	})
	return nil
}

// ResetSession cancels any tracked job and returns the session to idle
func (a *App) ResetSession() session.Snapshot {
	sess := a.currentSession()
	sess.Reset()
	return sess.Snapshot()
}

// ===================
// Artifact Download
// ===================

// DownloadArtifact streams a finished job's map image into the download
// directory, resuming a previous partial transfer when possible. Progress is
// emitted as artifact-download-progress events.
func (a *App) DownloadArtifact(jobID, filename string) (string, error) {
	a.mu.Lock()
	destDir := a.settings.DownloadPath
	client := a.client
	a.mu.Unlock()

	path, err := client.DownloadArtifact(a.ctx, jobID, filename, destDir, func(p backend.DownloadProgress) {
		wailsRuntime.EventsEmit(a.ctx, "artifact-download-progress", p)
	})
	if err != nil {
		wailsRuntime.LogError(a.ctx, fmt.Sprintf("Artifact download failed: %v", err))
		return "", err
	}

	log.Printf("Artifact saved to %s", path)
	return path, nil
}

// OpenDownloadURL opens the artifact's download link in the system browser
func (a *App) OpenDownloadURL(jobID, filename string) {
	wailsRuntime.BrowserOpenURL(a.ctx, a.currentClient().DownloadURL(jobID, filename))
}
