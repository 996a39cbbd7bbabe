package history

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fitly/tryon/pkg/errors"
)

// MemoryBlob keeps the blob in process memory.
type MemoryBlob struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryBlob returns a blob pre-filled with data.
func NewMemoryBlob(data []byte) *MemoryBlob {
	return &MemoryBlob{data: slices.Clone(data)}
}

func (m *MemoryBlob) Read(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.data), nil
}

func (m *MemoryBlob) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = slices.Clone(data)
	return nil
}

// FileBlob stores the blob in a single file, replaced atomically on write.
type FileBlob struct {
	path string
}

// NewFileBlob returns a blob stored at path.
func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

func (f *FileBlob) Read(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read history file")
	}
	return data, nil
}

func (f *FileBlob) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create history directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write history file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close history file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.path), "failed to replace history file")
}
