package storage

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when the key has never been set.
var ErrNotFound = errors.New("storage: key not found")

// Backend stores string values by key. Set must be durable when it
// returns without error.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Memory is an in-process Backend. It is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	values map[string]string

	// FailSet, when non-nil, is returned by every Set call.
	FailSet error
}

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements Backend.
func (m *Memory) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Backend.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSet != nil {
		return m.FailSet
	}
	m.values[key] = value
	return nil
}

// SetFailure makes subsequent Set calls fail with err (nil clears it).
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailSet = err
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

var _ Backend = (*Memory)(nil)
