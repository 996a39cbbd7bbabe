package fetch

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Router dispatches a reference to the fetcher for its scheme.
// A bare reference (no scheme) naming an existing local file is read from
// disk; any other bare reference is an S3 key.
type Router struct {
	HTTP Fetcher
	S3   Fetcher
	File Fetcher
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, "", fmt.Errorf("empty image reference")
	}

	var f Fetcher
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		f = r.HTTP
	case strings.HasPrefix(ref, "file://"), !strings.Contains(ref, "://") && isLocalFile(ref):
		f = r.File
	case strings.HasPrefix(ref, "s3://"), !strings.Contains(ref, "://"):
		f = r.S3
	}
	if f == nil {
		return nil, "", fmt.Errorf("no fetcher configured for %q", ref)
	}
	return f.Fetch(ctx, ref)
}

func isLocalFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
