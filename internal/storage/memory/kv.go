// Package memory provides an in-memory KV backend for tests and for running
// the service without external dependencies.
package memory

import (
	"context"
	"sync"

	"dexy/internal/storage"
)

// KV is an in-memory implementation of storage.KV.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKV creates a new in-memory KV store.
func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

// Get returns the value for key. Returns ErrNotFound if never written.
func (s *KV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set writes the value for key. Last write wins.
func (s *KV) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

var _ storage.KV = (*KV)(nil)
