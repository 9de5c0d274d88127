// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// ErrEmptyBody is returned when a download succeeds with no content.
var ErrEmptyBody = errors.New("empty response body")

// DownloadOptions configures Download.
type DownloadOptions struct {
	UserAgent string
	Accept    string

	// MaxBytes bounds the body size; 0 means unlimited.
	MaxBytes int64

	MaxRetries int
}

// Download fetches url into destPath through a temporary file in the same
// directory, so destPath is either the complete body or untouched. It
// follows redirects, retries throttled responses and returns the number of
// bytes written.
func Download(ctx context.Context, client *http.Client, url, destPath string, opts DownloadOptions) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}
	if opts.Accept != "" {
		req.Header.Set("Accept", opts.Accept)
	}

	resp, err := DoWithRetry(ctx, client, req, opts.MaxRetries)
	if err != nil {
		return 0, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Redacted())
	}

	var body io.Reader = resp.Body
	if opts.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, opts.MaxBytes+1)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, body)
	closeErr := tmpFile.Close()
	switch {
	case copyErr != nil:
		os.Remove(tmpPath)
		return n, fmt.Errorf("writing download: %w", copyErr)
	case closeErr != nil:
		os.Remove(tmpPath)
		return n, fmt.Errorf("closing temp file: %w", closeErr)
	case n == 0:
		os.Remove(tmpPath)
		return 0, fmt.Errorf("%w from %s", ErrEmptyBody, req.URL.Redacted())
	case opts.MaxBytes > 0 && n > opts.MaxBytes:
		os.Remove(tmpPath)
		return n, fmt.Errorf("download from %s exceeds %d bytes", req.URL.Redacted(), opts.MaxBytes)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return n, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}
