package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"trailforge-desktop/internal/history"
)

// ===================
// Place Search
// ===================

// SearchResult is the outcome of a place search for the frontend. NoMatch
// distinguishes "the query matched nothing" from a lookup failure, which is
// returned as an error instead.
type SearchResult struct {
	Query       string  `json:"query"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"displayName"`
	NoMatch     bool    `json:"noMatch"`
}

// SearchPlace geocodes a place name and records a successful hit in the
// search history. Only the first candidate is used.
func (a *App) SearchPlace(query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, fmt.Errorf("search query cannot be empty")
	}

	ctx, cancel := context.WithTimeout(a.ctx, 15*time.Second)
	defer cancel()

	places, err := a.currentClient().Geocode(ctx, query)
	if err != nil {
		wailsRuntime.LogError(a.ctx, fmt.Sprintf("Geocode lookup failed for %q: %v", query, err))
		return SearchResult{}, fmt.Errorf("place lookup failed: %w", err)
	}

	if len(places) == 0 {
		// A miss is a normal outcome, history stays untouched
		a.debugLog("No geocode match for %q", query)
		return SearchResult{Query: query, NoMatch: true}, nil
	}

	place := places[0]
	entry := history.Entry{
		Query:       query,
		Lat:         place.Lat,
		Lon:         place.Lon,
		DisplayName: place.DisplayName,
		Timestamp:   time.Now(),
	}
	if err := a.history.Record(entry); err != nil {
		// History is a convenience, a failed write must not fail the search
		wailsRuntime.LogError(a.ctx, fmt.Sprintf("Failed to record search history: %v", err))
	} else {
		wailsRuntime.EventsEmit(a.ctx, "search-history-changed", a.history.List())
	}

	return SearchResult{
		Query:       query,
		Lat:         place.Lat,
		Lon:         place.Lon,
		DisplayName: place.DisplayName,
	}, nil
}

// GetSearchHistory returns past searches, most recent first
func (a *App) GetSearchHistory() []history.Entry {
	return a.history.List()
}

// ClearSearchHistory empties the persisted search history
func (a *App) ClearSearchHistory() error {
	if err := a.history.Clear(); err != nil {
		return err
	}
	wailsRuntime.EventsEmit(a.ctx, "search-history-changed", a.history.List())
	return nil
}

// ===================
// Initial Map View
// ===================

// MapView is the frontend's initial camera position
type MapView struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom float64 `json:"zoom"`
}

// GetInitialView seeds the map: last saved position first, then the most
// recent search, then the configured default center
func (a *App) GetInitialView() MapView {
	a.mu.Lock()
	settings := *a.settings
	a.mu.Unlock()

	if settings.LastCenterLat != 0 || settings.LastCenterLon != 0 {
		return MapView{Lat: settings.LastCenterLat, Lon: settings.LastCenterLon, Zoom: settings.LastZoom}
	}

	if recent, ok := a.history.MostRecent(); ok {
		return MapView{Lat: recent.Lat, Lon: recent.Lon, Zoom: settings.DefaultZoom}
	}

	return MapView{Lat: settings.DefaultCenterLat, Lon: settings.DefaultCenterLon, Zoom: settings.DefaultZoom}
}
