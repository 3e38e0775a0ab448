package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trailforge-desktop/internal/selection"
)

const (
	// User agent sent with every backend request
	UserAgent = "TrailForge-Desktop/1.0"
)

// JobState is the backend-reported lifecycle state of a generation job
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Terminal reports whether no further status changes can occur
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobStatus is the response of the /api/status endpoint
type JobStatus struct {
	JobID    string   `json:"job_id"`
	Status   JobState `json:"status"`
	Progress string   `json:"progress,omitempty"`
	Error    string   `json:"error,omitempty"`
	Filename string   `json:"filename,omitempty"`
	FileSize int64    `json:"file_size,omitempty"`
}

// Place is one geocoding candidate
type Place struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"displayName"`
}

// Client handles communication with the TrailForge map-generation backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client with system proxy support
func NewClient(baseURL string) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// BaseURL returns the configured backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health probes the backend's health endpoint
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

// Generate submits a bounding box for map generation and returns the job ID.
// A non-2xx response is returned as an *APIError carrying the backend's
// detail message when present.
func (c *Client) Generate(ctx context.Context, bbox selection.BoundingBox) (string, error) {
	payload := struct {
		BBox selection.BoundingBox `json:"bbox"`
	}{BBox: bbox}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeAPIError(resp)
	}

	var result struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}
	if result.JobID == "" {
		return "", fmt.Errorf("backend returned an empty job id")
	}

	return result.JobID, nil
}

// Status fetches the current state of a generation job
func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return JobStatus{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return JobStatus{}, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return JobStatus{}, decodeAPIError(resp)
	}

	var status JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return JobStatus{}, fmt.Errorf("failed to decode status response: %w", err)
	}

	return status, nil
}

// Geocode resolves a place name to candidate coordinates. An empty result
// with a nil error means the query matched nothing; a non-nil error means
// the lookup itself failed.
func (c *Client) Geocode(ctx context.Context, query string) ([]Place, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	endpoint := c.baseURL + "/api/geocode?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	// The backend proxies Nominatim, which encodes coordinates as strings
	var raw []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q in geocode response: %w", r.Lat, err)
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q in geocode response: %w", r.Lon, err)
		}
		places = append(places, Place{Lat: lat, Lon: lon, DisplayName: r.DisplayName})
	}

	return places, nil
}

// DownloadURL constructs the download link for a finished job's artifact.
// The URL is handed to the presentation layer; the file itself is only
// fetched when the user asks for it.
func (c *Client) DownloadURL(jobID, filename string) string {
	return c.baseURL + "/api/download/" + url.PathEscape(jobID) + "/" + url.PathEscape(filename)
}
