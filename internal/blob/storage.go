// Package blob provides the archive blob store: opaque put/get of fetched
// feed payloads under hierarchical keys usable for prefix listing.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store abstracts the archive bucket. Keys are slash-separated paths;
// metadata is attached to the stored object where the backend supports it.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// LocalStore implements Store on the local filesystem.
// Useful for development and testing. Content type and metadata are
// accepted but not persisted.
type LocalStore struct {
	BaseDir string
}

// NewLocalStore creates a LocalStore rooted at the given directory.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{BaseDir: baseDir}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(key))
}

// Put stores a payload under key.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Get retrieves a payload by key.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	return os.ReadFile(s.path(key))
}
