// Package app wires the try-on components from configuration.
package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fitly/tryon/internal/config"
	"github.com/fitly/tryon/pkg/broadcast"
	"github.com/fitly/tryon/pkg/db"
	"github.com/fitly/tryon/pkg/errors"
	"github.com/fitly/tryon/pkg/fetch"
	"github.com/fitly/tryon/pkg/history"
	"github.com/fitly/tryon/pkg/photo"
	"github.com/fitly/tryon/pkg/poller"
	"github.com/fitly/tryon/pkg/request"
	"github.com/fitly/tryon/pkg/session"
	"github.com/fitly/tryon/pkg/storage"
	"github.com/fitly/tryon/pkg/vton"
)

// App holds shared dependencies.
type App struct {
	Config    *config.Config
	Fetcher   fetch.Fetcher
	Builder   *request.Builder
	Service   vton.Service
	Poller    *poller.Poller
	Validator *photo.Validator
	History   *history.Log
	Hub       *broadcast.Hub
	Session   *session.Session

	closers []func() error
}

// Build prepares every dependency and loads history.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	fetcher, err := buildFetcher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Fetcher = fetcher

	blob, err := a.buildHistoryBlob(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Builder = request.NewBuilder(fetcher)
	a.Service = vton.NewClient(vton.Options{BaseURL: cfg.Service.BaseURL, Timeout: cfg.Service.Timeout})
	a.Poller = poller.New(cfg.Poll.Interval, cfg.Poll.MaxAttempts)
	a.Validator = photo.NewValidator(cfg.Photo.MaxSize)
	a.History = history.NewLog(blob)
	a.History.Load(ctx)
	a.Hub = broadcast.NewHub()
	a.Session = session.New(session.Options{
		Builder:   a.Builder,
		Service:   a.Service,
		Poller:    a.Poller,
		History:   a.History,
		Hub:       a.Hub,
		Validator: a.Validator,
	})

	slog.Info("app_ready",
		"service", cfg.Service.BaseURL,
		"history_backend", cfg.History.Backend,
		"s3_bucket", cfg.S3.Bucket)
	return a, nil
}

// Close releases storage handles.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func buildFetcher(ctx context.Context, cfg *config.Config) (fetch.Fetcher, error) {
	router := &fetch.Router{
		HTTP: fetch.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.MaxSize),
		File: fetch.NewFileFetcher(cfg.Fetch.MaxSize),
	}
	if cfg.S3.Bucket == "" {
		return router, nil
	}

	s3Client, err := storage.NewClient(ctx, storage.Options{
		Bucket:  cfg.S3.Bucket,
		Region:  cfg.S3.Region,
		MaxSize: cfg.Fetch.MaxSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "S3 client failed")
	}
	router.S3 = s3Client
	return router, nil
}

func (a *App) buildHistoryBlob(ctx context.Context, cfg *config.Config) (history.Blob, error) {
	switch cfg.History.Backend {
	case config.BackendMemory:
		return history.NewMemoryBlob(nil), nil

	case config.BackendFile:
		return history.NewFileBlob(cfg.History.Path), nil

	case config.BackendMongo:
		client, err := history.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			return client.Disconnect(context.Background())
		})
		coll := client.Database(cfg.Mongo.Database).Collection("blobs")
		return history.NewMongoBlob(coll, cfg.History.Name), nil

	case config.BackendSQLite:
		if err := EnsureDirectories(cfg.History.Path, ""); err != nil {
			return nil, err
		}
		repo, err := db.NewRepository(cfg.History.Path)
		if err != nil {
			return nil, errors.Wrap(err, "db init failed")
		}
		a.closers = append(a.closers, repo.Close)
		return repo.Blob(cfg.History.Name), nil
	}
	return nil, errors.Wrap(os.ErrInvalid, "unknown history backend "+cfg.History.Backend)
}

// EnsureDirectories creates the parent directory of dbPath and the FSM
// state directory, when given.
func EnsureDirectories(dbPath, fsmDBPath string) error {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return errors.Wrap(err, "failed to create database directory")
		}
	}
	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}
	return nil
}
