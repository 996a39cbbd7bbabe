package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Poll.Interval != 2*time.Second || cfg.Poll.MaxAttempts != 60 {
		t.Errorf("poll = %+v", cfg.Poll)
	}
	if cfg.Photo.MaxSize != 10*1024*1024 {
		t.Errorf("photo.max-size = %d", cfg.Photo.MaxSize)
	}
	if cfg.History.Backend != BackendSQLite || cfg.History.Name != "vton_history" {
		t.Errorf("history = %+v", cfg.History)
	}
}

func TestLoadFromEnv(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("TRYON_SERVICE_BASE_URL", "https://vton.example.com")
	t.Setenv("TRYON_POLL_MAX_ATTEMPTS", "5")
	t.Setenv("TRYON_HISTORY_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.BaseURL != "https://vton.example.com" {
		t.Errorf("base url = %q", cfg.Service.BaseURL)
	}
	if cfg.Poll.MaxAttempts != 5 {
		t.Errorf("max attempts = %d", cfg.Poll.MaxAttempts)
	}
	if cfg.History.Backend != BackendMemory {
		t.Errorf("backend = %q", cfg.History.Backend)
	}
}

func validConfig() Config {
	return Config{
		Service:   ServiceConfig{BaseURL: "http://localhost:8000", Timeout: time.Minute},
		Poll:      PollConfig{Interval: time.Second, MaxAttempts: 60},
		Photo:     PhotoConfig{MaxSize: 1},
		Fetch:     FetchConfig{Timeout: time.Second, MaxSize: 1},
		History:   HistoryConfig{Backend: BackendFile, Path: "h.json", Name: "vton_history"},
		FSMDBPath: "fsm",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty base url", func(c *Config) { c.Service.BaseURL = "" }, "base-url"},
		{"non http base url", func(c *Config) { c.Service.BaseURL = "ftp://x" }, "http(s)"},
		{"zero interval", func(c *Config) { c.Poll.Interval = 0 }, "poll.interval"},
		{"zero attempts", func(c *Config) { c.Poll.MaxAttempts = 0 }, "poll.max-attempts"},
		{"zero photo size", func(c *Config) { c.Photo.MaxSize = 0 }, "photo.max-size"},
		{"unknown backend", func(c *Config) { c.History.Backend = "redis" }, "unknown history.backend"},
		{"file without path", func(c *Config) { c.History.Path = "" }, "history.path"},
		{"mongo without uri", func(c *Config) { c.History.Backend = BackendMongo }, "mongo.uri"},
		{"memory needs no path", func(c *Config) { c.History.Backend = BackendMemory; c.History.Path = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
