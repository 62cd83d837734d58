// Package localstore provides the durable key-value records the console keeps
// between runs (draft, view mode, folder and tag state).
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrCorrupt is returned by LoadJSON when a stored record cannot be decoded.
var ErrCorrupt = errors.New("localstore: corrupt record")

// Store is a small namespaced key-value store. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns the value stored under key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Set replaces the value stored under key.
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// LoadJSON decodes the record under key into v. It reports false when the key
// is absent. A record that fails to decode yields ErrCorrupt and leaves v
// untouched so callers can fall back to defaults.
func LoadJSON[T any](s Store, key string, v *T) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	var tmp T
	if err := json.Unmarshal(data, &tmp); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	*v = tmp
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("localstore: encode %s: %w", key, err)
	}
	return s.Set(key, data)
}

// Memory is an in-process Store used by tests and ephemeral sessions.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	// FailWrites, when set, is returned from every Set and Delete.
	FailWrites error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	delete(m.data, key)
	return nil
}
