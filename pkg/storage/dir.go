package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Dir stores each key as a file in a directory. Writes go through a
// temporary file and a rename.
type Dir struct {
	mu   sync.Mutex
	path string
}

// NewDir creates the directory if needed and returns a Dir backend.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Get implements Backend.
func (d *Dir) Get(key string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(d.path, key))
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Set implements Backend.
func (d *Dir) Set(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	target := filepath.Join(d.path, key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

var _ Backend = (*Dir)(nil)
