package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/smcluster/service/artifact"
)

// Store is an in-memory artifact.Store. Values are copied on the way in and
// out so callers never share buffers.
type Store struct {
	mu      sync.RWMutex
	records map[string][]byte
	writes  map[string]int
}

// Ensure Store implements artifact.Store
var _ artifact.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[string][]byte),
		writes:  make(map[string]int),
	}
}

// PutIfAbsent stores data unless key is present.
func (s *Store) PutIfAbsent(_ context.Context, key string, data []byte) error {
	if key == "" {
		return artifact.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return fmt.Errorf("%w: %s", artifact.ErrExists, key)
	}
	s.records[key] = append([]byte(nil), data...)
	s.writes[key]++
	return nil
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

// Exists reports whether key is present.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok, nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Writes returns how many times key was successfully written.
func (s *Store) Writes(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes[key]
}
