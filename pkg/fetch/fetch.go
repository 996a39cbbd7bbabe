// Package fetch downloads garment reference images from wherever the catalog
// resolved them: http(s) URLs, S3 objects or local files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fitly/tryon/pkg/errors"
)

// DefaultMaxSize caps a single garment image.
const DefaultMaxSize int64 = 20 * 1024 * 1024

// Fetcher returns the bytes and content type behind an image reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, string, error)
}

// HTTPFetcher downloads images over HTTP.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

// NewHTTPFetcher creates a fetcher. Zero values select a 30s timeout and DefaultMaxSize.
func NewHTTPFetcher(timeout time.Duration, maxSize int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}, maxSize: maxSize}
}

// Fetch downloads url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "invalid image url")
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Error("garment_image_download_failed", "url", url, "error", err)
		return nil, "", errors.Wrap(err, "failed to download image")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("garment_image_bad_status", "url", url, "status", resp.StatusCode)
		return nil, "", fmt.Errorf("failed to fetch image, status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read image body")
	}
	if int64(len(data)) > f.maxSize {
		return nil, "", fmt.Errorf("image exceeds max size %d", f.maxSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// FileFetcher reads images from local disk, for fixtures and offline catalogs.
type FileFetcher struct {
	maxSize int64
}

// NewFileFetcher creates a local file fetcher. Zero selects DefaultMaxSize.
func NewFileFetcher(maxSize int64) FileFetcher {
	return FileFetcher{maxSize: maxSize}
}

// Fetch reads a file:// URL or a plain path.
func (f FileFetcher) Fetch(_ context.Context, ref string) ([]byte, string, error) {
	path := strings.TrimPrefix(ref, "file://")
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to stat image file")
	}
	limit := f.maxSize
	if limit <= 0 {
		limit = DefaultMaxSize
	}
	if info.Size() > limit {
		return nil, "", fmt.Errorf("image exceeds max size %d", limit)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read image file")
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
