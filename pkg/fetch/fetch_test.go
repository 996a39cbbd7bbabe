package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shirt.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg"))
		case "/big.jpg":
			w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0, 32)

	data, contentType, err := f.Fetch(context.Background(), srv.URL+"/shirt.jpg")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "jpeg" || contentType != "image/jpeg" {
		t.Errorf("got %q %q", data, contentType)
	}

	if _, _, err := f.Fetch(context.Background(), srv.URL+"/missing.jpg"); err == nil {
		t.Error("expected error for 404")
	}
	if _, _, err := f.Fetch(context.Background(), srv.URL+"/big.jpg"); err == nil {
		t.Error("expected error for oversized body")
	}
}

func TestFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pants.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, contentType, err := FileFetcher{}.Fetch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "png" || contentType != "image/png" {
		t.Errorf("got %q %q", data, contentType)
	}
}

type recordingFetcher struct {
	name string
	got  *string
}

func (r recordingFetcher) Fetch(_ context.Context, ref string) ([]byte, string, error) {
	*r.got = r.name
	return []byte(ref), "image/jpeg", nil
}

func TestRouter(t *testing.T) {
	local := filepath.Join(t.TempDir(), "shirt.jpg")
	if err := os.WriteFile(local, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	var got string
	r := &Router{
		HTTP: recordingFetcher{"http", &got},
		S3:   recordingFetcher{"s3", &got},
		File: recordingFetcher{"file", &got},
	}

	tests := []struct {
		ref  string
		want string
	}{
		{"https://cdn.example.com/a.jpg", "http"},
		{"http://cdn.example.com/a.jpg", "http"},
		{"s3://bucket/a.jpg", "s3"},
		{"garments/a.jpg", "s3"},
		{"file:///tmp/a.jpg", "file"},
		{local, "file"},
		{filepath.Dir(local), "s3"},
	}

	for _, tt := range tests {
		got = ""
		if _, _, err := r.Fetch(context.Background(), tt.ref); err != nil {
			t.Errorf("Fetch(%q): %v", tt.ref, err)
		}
		if got != tt.want {
			t.Errorf("Fetch(%q) routed to %q, want %q", tt.ref, got, tt.want)
		}
	}

	if _, _, err := (&Router{}).Fetch(context.Background(), "s3://b/k"); err == nil {
		t.Error("expected error without S3 fetcher")
	}
	if _, _, err := r.Fetch(context.Background(), "ftp://x/y"); err == nil {
		t.Error("expected error for unknown scheme")
	}
	if _, _, err := r.Fetch(context.Background(), "  "); err == nil {
		t.Error("expected error for empty reference")
	}
}
