package db

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/fitly/tryon/pkg/errors"
	_ "modernc.org/sqlite"
)

// Repository provides database operations for named blobs
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository
func NewRepository(dbPath string) (*Repository, error) {
	slog.Info("database_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("database_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open database")
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	// Create schema
	slog.Info("database_create_schema", "db_path", dbPath)
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("database_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	slog.Info("database_ready", "db_path", dbPath)
	return &Repository{db: db}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// Get retrieves a blob by name. It returns nil, nil when the blob does not exist.
func (r *Repository) Get(ctx context.Context, name string) (*Blob, error) {
	query := `SELECT name, data, created_at, updated_at FROM blobs WHERE name = ?`

	var b Blob
	err := r.db.QueryRowContext(ctx, query, name).Scan(&b.Name, &b.Data, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Info("database_blob_not_found", "name", name)
		return nil, nil
	}
	if err != nil {
		slog.Error("database_query_failed", "name", name, "error", err)
		return nil, errors.Wrap(err, "failed to query blob")
	}

	return &b, nil
}

// Put inserts or replaces a blob
func (r *Repository) Put(ctx context.Context, name string, data []byte) error {
	query := `
		INSERT INTO blobs (name, data) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, name, data); err != nil {
		slog.Error("database_put_failed", "name", name, "error", err)
		return errors.Wrap(err, "failed to save blob")
	}

	slog.Info("database_blob_saved", "name", name, "size_bytes", len(data))
	return nil
}

// Delete removes a blob by name
func (r *Repository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blobs WHERE name = ?`, name); err != nil {
		slog.Error("database_delete_failed", "name", name, "error", err)
		return errors.Wrap(err, "failed to delete blob")
	}

	slog.Info("database_blob_deleted", "name", name)
	return nil
}

// NamedBlob binds one blob name to a repository.
type NamedBlob struct {
	repo *Repository
	name string
}

// Blob returns a handle reading and writing the blob called name.
func (r *Repository) Blob(name string) *NamedBlob {
	return &NamedBlob{repo: r, name: name}
}

// Read returns the stored bytes, or nil when the blob does not exist.
func (b *NamedBlob) Read(ctx context.Context) ([]byte, error) {
	blob, err := b.repo.Get(ctx, b.name)
	if err != nil || blob == nil {
		return nil, err
	}
	return blob.Data, nil
}

// Write replaces the stored bytes.
func (b *NamedBlob) Write(ctx context.Context, data []byte) error {
	return b.repo.Put(ctx, b.name, data)
}
