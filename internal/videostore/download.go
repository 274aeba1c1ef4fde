package videostore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// DownloadError reports a non-2xx HTTP response while fetching a generated
// video.
type DownloadError struct {
	StatusCode int
	Status     string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download video: %d %s", e.StatusCode, e.Status)
}

// VideoPath derives the deterministic destination for a (spot, era) pair.
// Repeated generation for the same identity overwrites the previous file.
func VideoPath(videosDir, spotID, eraID string) string {
	return filepath.Join(videosDir, fmt.Sprintf("%s-%s.mp4", spotID, eraID))
}

// DownloadTo streams the resource at url to destPath, creating missing
// parent directories. The body goes straight to disk; nothing is buffered
// in memory. Result URLs expire upstream (24 hours), so callers invoke this
// promptly after a successful poll.
func DownloadTo(ctx context.Context, httpClient *http.Client, url, destPath string) error {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", destPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DownloadError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", destPath, err)
	}
	return nil
}
