// Package history keeps the durable, most-recent-first log of completed try-on
// tasks. The whole list is persisted as one serialized blob.
package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fitly/tryon/pkg/errors"
	"github.com/fitly/tryon/pkg/garment"
	"github.com/fitly/tryon/pkg/photo"
)

// Entry is an immutable record of a completed task.
type Entry struct {
	ID             string            `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	ClothType      garment.ClothType `json:"cloth_type"`
	Upper          *garment.Product  `json:"upper,omitempty"`
	Lower          *garment.Product  `json:"lower,omitempty"`
	Photo          *photo.Photo      `json:"photo,omitempty"`
	ResultImageURL string            `json:"result_image_url"`
}

// clone copies e including the values its pointers refer to.
func (e Entry) clone() Entry {
	if e.Upper != nil {
		u := *e.Upper
		e.Upper = &u
	}
	if e.Lower != nil {
		l := *e.Lower
		e.Lower = &l
	}
	if e.Photo != nil {
		p := *e.Photo
		e.Photo = &p
	}
	return e
}

func cloneAll(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.clone()
	}
	return out
}

// Blob is a single named, durable byte blob.
type Blob interface {
	// Read returns the stored bytes, or nil, nil if nothing was stored yet.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the stored bytes.
	Write(ctx context.Context, data []byte) error
}

// Log is the in-memory history backed by a Blob.
type Log struct {
	blob Blob

	mu      sync.Mutex
	entries []Entry
	loaded  bool
}

// NewLog creates a log over blob. Call Load before reading.
func NewLog(blob Blob) *Log {
	return &Log{blob: blob}
}

// Load reads the persisted list. A missing, unreadable or corrupt blob yields
// an empty list; the problem is logged and never returned to the caller.
func (l *Log) Load(ctx context.Context) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = l.read(ctx)
	l.loaded = true
	slog.Info("history_loaded", "entries", len(l.entries))
	return cloneAll(l.entries)
}

func (l *Log) read(ctx context.Context) []Entry {
	data, err := l.blob.Read(ctx)
	if err != nil {
		slog.Error("history_read_failed", "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("history_corrupt", "size_bytes", len(data), "error", err)
		return nil
	}
	return entries
}

// Append prepends e and persists the whole list. An entry whose id is already
// recorded is ignored. On a persistence error the entry stays in memory.
func (l *Log) Append(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		l.entries = l.read(ctx)
		l.loaded = true
	}
	if l.indexOf(e.ID) >= 0 {
		slog.Info("history_entry_exists", "id", e.ID)
		return nil
	}

	l.entries = append([]Entry{e.clone()}, l.entries...)
	slog.Info("history_entry_appended", "id", e.ID, "entries", len(l.entries))
	return l.persist(ctx)
}

// Remove deletes the entry with id. It reports whether an entry was removed.
func (l *Log) Remove(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return false, nil
	}
	l.entries = slices.Delete(l.entries, i, i+1)
	slog.Info("history_entry_removed", "id", id)
	return true, l.persist(ctx)
}

// Entries returns a deep copy of the list, most recent first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneAll(l.entries)
}

// Get returns the entry with id.
func (l *Log) Get(id string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(id); i >= 0 {
		return l.entries[i].clone(), true
	}
	return Entry{}, false
}

func (l *Log) indexOf(id string) int {
	return slices.IndexFunc(l.entries, func(e Entry) bool { return e.ID == id })
}

func (l *Log) persist(ctx context.Context) error {
	entries := l.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "failed to encode history")
	}
	if err := l.blob.Write(ctx, data); err != nil {
		slog.Error("history_write_failed", "error", err)
		return errors.Wrap(err, "failed to persist history")
	}
	return nil
}
