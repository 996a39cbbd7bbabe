package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// History backends
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Config holds all application configuration
type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Poll    PollConfig    `mapstructure:"poll"`
	Photo   PhotoConfig   `mapstructure:"photo"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	S3      S3Config      `mapstructure:"s3"`
	History HistoryConfig `mapstructure:"history"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	HTTP    HTTPConfig    `mapstructure:"http"`

	// FSM state database (BoltDB)
	FSMDBPath string `mapstructure:"fsm-db-path"`
	LogLevel  string `mapstructure:"log-level"`
}

// ServiceConfig locates the virtual try-on service
type ServiceConfig struct {
	BaseURL string        `mapstructure:"base-url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PollConfig bounds task status polling
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max-attempts"`
}

type PhotoConfig struct {
	MaxSize int64 `mapstructure:"max-size"`
}

// FetchConfig limits garment image downloads
type FetchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	MaxSize int64         `mapstructure:"max-size"`
}

// S3Config enables garment images stored in S3. An empty bucket disables bare keys.
type S3Config struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
}

type HistoryConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is the sqlite database or JSON file, depending on Backend
	Path string `mapstructure:"path"`
	Name string `mapstructure:"name"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from .env, environment, config file, and defaults
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	// Set defaults
	viper.SetDefault("service.base-url", "http://localhost:8000")
	viper.SetDefault("service.timeout", 60*time.Second)
	viper.SetDefault("poll.interval", 2*time.Second)
	viper.SetDefault("poll.max-attempts", 60)
	viper.SetDefault("photo.max-size", 10*1024*1024)
	viper.SetDefault("fetch.timeout", 30*time.Second)
	viper.SetDefault("fetch.max-size", 20*1024*1024)
	viper.SetDefault("s3.bucket", "")
	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("history.backend", BackendSQLite)
	viper.SetDefault("history.path", ".artifacts/history.db")
	viper.SetDefault("history.name", "vton_history")
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "tryon")
	viper.SetDefault("fsm-db-path", ".artifacts/fsm")
	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("log-level", "info")

	// Environment variables (will be TRYON_SERVICE_BASE_URL, etc.)
	viper.SetEnvPrefix("TRYON")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.tryon")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("service.base-url cannot be empty")
	}
	if !strings.HasPrefix(c.Service.BaseURL, "http://") && !strings.HasPrefix(c.Service.BaseURL, "https://") {
		return fmt.Errorf("service.base-url must be an http(s) URL")
	}
	if c.Service.Timeout <= 0 {
		return fmt.Errorf("service.timeout must be positive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll.max-attempts must be positive")
	}
	if c.Photo.MaxSize <= 0 {
		return fmt.Errorf("photo.max-size must be positive")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.MaxSize <= 0 {
		return fmt.Errorf("fetch.max-size must be positive")
	}

	switch c.History.Backend {
	case BackendSQLite, BackendFile:
		if c.History.Path == "" {
			return fmt.Errorf("history.path cannot be empty for the %s backend", c.History.Backend)
		}
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("mongo.uri and mongo.database are required for the mongo backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown history.backend %q", c.History.Backend)
	}
	if c.History.Name == "" {
		return fmt.Errorf("history.name cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	return nil
}
