// Package memory implements domain.SlotStore in process memory. Contents do
// not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// SlotStore keeps slots in a map guarded by an RWMutex.
type SlotStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewSlotStore returns an empty SlotStore.
func NewSlotStore() *SlotStore {
	return &SlotStore{slots: make(map[string][]byte)}
}

// Get returns a copy of the slot's bytes or domain.ErrNotFound.
func (s *SlotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.slots[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Put stores a copy of data under key.
func (s *SlotStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SlotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, key)
	return nil
}

// Compile-time interface check.
var _ domain.SlotStore = (*SlotStore)(nil)
