package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FS is a Store backed by a local directory. Keys map to file paths, so the
// raw/ and processed/ namespaces become subdirectories. Used for local runs
// without an S3 bucket.
type FS struct {
	root string
}

// NewFS creates a filesystem store rooted at dir.
func NewFS(dir string) *FS {
	return &FS{root: dir}
}

// Put writes the object to disk, creating parent directories as needed.
func (f *FS) Put(_ context.Context, key string, data []byte) error {
	path := filepath.Join(f.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	return nil
}

// Get reads the object from disk. A missing file maps to ErrNotFound.
func (f *FS) Get(_ context.Context, key string) ([]byte, error) {
	path := filepath.Join(f.root, filepath.FromSlash(key))
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, nil
}
