package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailforge-desktop/internal/selection"
)

func TestGenerateSuccess(t *testing.T) {
	var gotBody struct {
		BBox selection.BoundingBox `json:"bbox"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"job_id": "job-123", "status": "queued"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	jobID, err := client.Generate(context.Background(), selection.BoundingBox{South: 47.35, West: 8.48, North: 47.42, East: 8.58})

	require.NoError(t, err)
	assert.Equal(t, "job-123", jobID)
	assert.Equal(t, 47.35, gotBody.BBox.South)
	assert.Equal(t, 8.58, gotBody.BBox.East)
}

func TestGenerateRejectedCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Selected area exceeds maximum"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Generate(context.Background(), selection.BoundingBox{South: 0, West: 0, North: 3, East: 3})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Selected area exceeds maximum", apiErr.Error())
}

func TestGenerateErrorWithoutDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Generate(context.Background(), selection.BoundingBox{South: 0, West: 0, North: 1, East: 1})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "backend returned status 502", apiErr.Error())
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/status/job-123", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job_id":    "job-123",
			"status":    "completed",
			"filename":  "gmapsupp.img",
			"file_size": 52428800,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	status, err := client.Status(context.Background(), "job-123")

	require.NoError(t, err)
	assert.Equal(t, JobCompleted, status.Status)
	assert.True(t, status.Status.Terminal())
	assert.Equal(t, "gmapsupp.img", status.Filename)
	assert.Equal(t, int64(52428800), status.FileSize)
}

func TestStatusNonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Status(context.Background(), "job-123")
	assert.Error(t, err)
}

func TestGeocodeParsesNominatimStrings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/geocode", r.URL.Path)
		require.Equal(t, "Zurich", r.URL.Query().Get("q"))
		// Nominatim encodes coordinates as JSON strings
		w.Write([]byte(`[{"lat": "47.3769", "lon": "8.5417", "display_name": "Zurich, Switzerland"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	places, err := client.Geocode(context.Background(), "Zurich")

	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, 47.3769, places[0].Lat)
	assert.Equal(t, 8.5417, places[0].Lon)
	assert.Equal(t, "Zurich, Switzerland", places[0].DisplayName)
}

func TestGeocodeNoMatchIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	places, err := client.Geocode(context.Background(), "xyzzy nowhere")

	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestGeocodeServiceFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Geocode(context.Background(), "Zurich")
	assert.Error(t, err)
}

func TestGeocodeUnreachableBackend(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	_, err := client.Geocode(context.Background(), "Zurich")
	assert.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestGeocodeEmptyQuery(t *testing.T) {
	client := NewClient("http://localhost:8000")
	_, err := client.Geocode(context.Background(), "   ")
	assert.Error(t, err)
}

func TestDownloadURL(t *testing.T) {
	client := NewClient("http://localhost:8000/")
	url := client.DownloadURL("job-123", "gmapsupp.img")
	assert.Equal(t, "http://localhost:8000/api/download/job-123/gmapsupp.img", url)
}
