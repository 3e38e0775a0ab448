package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Chunk size for streaming artifact downloads (1 MB)
const downloadChunkSize = 1024 * 1024

// DownloadProgress reports artifact download progress
type DownloadProgress struct {
	Received int64 `json:"received"`
	Total    int64 `json:"total"` // 0 when the backend did not report a size
	Percent  int   `json:"percent"`
}

// DownloadArtifact streams a finished job's artifact into destDir, resuming
// from a previous partial download when the backend supports Range requests.
// It returns the final file path. The progress callback may be nil.
func (c *Client) DownloadArtifact(ctx context.Context, jobID, filename, destDir string, progress func(DownloadProgress)) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	finalPath := filepath.Join(destDir, filename)
	partPath := finalPath + ".part"

	var offset int64
	if info, err := os.Stat(partPath); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(jobID, filename), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Full response: any previous partial data is stale
		offset = 0
	case http.StatusPartialContent:
		// Resuming from offset
	case http.StatusRequestedRangeNotSatisfiable:
		// Partial file no longer matches the artifact, start over
		os.Remove(partPath)
		return c.DownloadArtifact(ctx, jobID, filename, destDir, progress)
	default:
		return "", decodeAPIError(resp)
	}

	total := totalSize(resp, offset)

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(partPath, flags, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open partial file: %w", err)
	}

	received := offset
	buf := make([]byte, downloadChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				out.Close()
				return "", fmt.Errorf("failed to write artifact: %w", err)
			}
			received += int64(n)
			if progress != nil {
				progress(makeProgress(received, total))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			return "", fmt.Errorf("download interrupted: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close artifact file: %w", err)
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}

	return finalPath, nil
}

// totalSize derives the full artifact size from the response headers
func totalSize(resp *http.Response, offset int64) int64 {
	if resp.StatusCode == http.StatusPartialContent {
		// Content-Range: bytes START-END/TOTAL
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			if idx := strings.LastIndex(cr, "/"); idx >= 0 {
				if v, err := strconv.ParseInt(cr[idx+1:], 10, 64); err == nil {
					return v
				}
			}
		}
		if resp.ContentLength > 0 {
			return offset + resp.ContentLength
		}
		return 0
	}
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}
	return 0
}

func makeProgress(received, total int64) DownloadProgress {
	p := DownloadProgress{Received: received, Total: total}
	if total > 0 {
		p.Percent = int(received * 100 / total)
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	return p
}
