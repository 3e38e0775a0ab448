package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// artifactServer serves a fixed artifact with single-range support, matching
// the backend's download contract
func artifactServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Header().Set("Content-Length", strconv.Itoa(len(content)))
			w.WriteHeader(http.StatusOK)
			w.Write(content)
			return
		}

		var start int
		_, err := fmt.Sscanf(strings.TrimSuffix(rangeHeader, "-"), "bytes=%d", &start)
		require.NoError(t, err)
		if start >= len(content) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}

		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(content)-1, len(content)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(content[start:])
	}))
}

func TestDownloadArtifact(t *testing.T) {
	content := []byte("garmin image payload")
	srv := artifactServer(t, content)
	defer srv.Close()

	destDir := t.TempDir()
	client := NewClient(srv.URL)

	var last DownloadProgress
	path, err := client.DownloadArtifact(context.Background(), "job-123", "gmapsupp.img", destDir, func(p DownloadProgress) {
		last = p
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "gmapsupp.img"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	assert.Equal(t, int64(len(content)), last.Received)
	assert.Equal(t, 100, last.Percent)

	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err), "partial file should be renamed away")
}

func TestDownloadArtifactResumesFromPartial(t *testing.T) {
	content := []byte("0123456789abcdef")
	srv := artifactServer(t, content)
	defer srv.Close()

	destDir := t.TempDir()
	partPath := filepath.Join(destDir, "gmapsupp.img.part")
	require.NoError(t, os.WriteFile(partPath, content[:6], 0644))

	client := NewClient(srv.URL)
	path, err := client.DownloadArtifact(context.Background(), "job-123", "gmapsupp.img", destDir, nil)

	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadArtifactRestartsOnUnsatisfiableRange(t *testing.T) {
	content := []byte("short")
	srv := artifactServer(t, content)
	defer srv.Close()

	destDir := t.TempDir()
	partPath := filepath.Join(destDir, "gmapsupp.img.part")
	// Stale partial larger than the artifact itself
	require.NoError(t, os.WriteFile(partPath, make([]byte, 64), 0644))

	client := NewClient(srv.URL)
	path, err := client.DownloadArtifact(context.Background(), "job-123", "gmapsupp.img", destDir, nil)

	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadArtifactBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "File not found"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.DownloadArtifact(context.Background(), "job-123", "gmapsupp.img", t.TempDir(), nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "File not found", apiErr.Error())
}
