// Package settings persists the controller's records (layout, sync,
// keybindings, slots) as raw JSON documents keyed by name.
package settings

import (
	"context"
	"errors"
	"sync"
)

// Record keys.
const (
	KeyLayout      = "layout"
	KeySync        = "sync"
	KeyKeybindings = "keybindings"
	KeySlots       = "slots"
)

// ErrUnknownBackend is returned by Open for a backend name it does not know.
var ErrUnknownBackend = errors.New("unknown store backend")

// Store is the persistence abstraction for settings records.
// Implementations can be in-memory, file-based, or remote.
// The Adapter uses Store for all reads and writes; its callers do not need
// to know which Store is used.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore returns a new empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Store.Set.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), value...)
	return nil
}
