package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fitly/tryon/internal/config"
	"github.com/fitly/tryon/pkg/history"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "history.db")
	if backend == config.BackendFile {
		path = filepath.Join(dir, "history.json")
	}
	return &config.Config{
		Service:   config.ServiceConfig{BaseURL: "http://localhost:1", Timeout: time.Second},
		Poll:      config.PollConfig{Interval: time.Millisecond, MaxAttempts: 3},
		Photo:     config.PhotoConfig{MaxSize: 1024},
		Fetch:     config.FetchConfig{Timeout: time.Second, MaxSize: 1024},
		History:   config.HistoryConfig{Backend: backend, Path: path, Name: "vton_history"},
		FSMDBPath: filepath.Join(dir, "fsm"),
	}
}

func TestBuildBackends(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, backend)

			a, err := Build(ctx, cfg)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			defer a.Close()

			if a.Session == nil || a.Hub == nil || a.History == nil {
				t.Fatal("app not fully wired")
			}
			if a.Poller.MaxAttempts != 3 || a.Validator.MaxSize() != 1024 {
				t.Errorf("config not applied: attempts=%d max=%d", a.Poller.MaxAttempts, a.Validator.MaxSize())
			}

			if err := a.History.Append(ctx, history.Entry{ID: "T1", ResultImageURL: "R1"}); err != nil {
				t.Fatalf("Append: %v", err)
			}
			if backend == config.BackendMemory {
				return
			}

			// A second app over the same storage sees the entry.
			a.Close()
			b, err := Build(ctx, cfg)
			if err != nil {
				t.Fatalf("rebuild: %v", err)
			}
			defer b.Close()
			if _, ok := b.History.Get("T1"); !ok {
				t.Error("history entry not persisted")
			}
		})
	}
}

func TestBuildUnknownBackend(t *testing.T) {
	if _, err := Build(context.Background(), testConfig(t, "redis")); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
