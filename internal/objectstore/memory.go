package objectstore

import (
	"context"
	"strings"
	"sync"

	"github.com/go-authgate/appgrant/internal/core"
)

var _ core.ObjectStore = (*MemoryStore)(nil)

// MemoryStore keeps object keys in process memory.
// Used for single-instance deployments and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	objects   map[string]struct{}
	publicURL string
}

// NewMemoryStore creates an in-memory object store serving URLs under publicURL.
func NewMemoryStore(publicURL string) *MemoryStore {
	if publicURL == "" {
		publicURL = "memory://objects"
	}
	return &MemoryStore{
		objects:   make(map[string]struct{}),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Put records an object under key.
func (s *MemoryStore) Put(key string) {
	s.mu.Lock()
	s.objects[key] = struct{}{}
	s.mu.Unlock()
}

// Has reports whether an object exists under key.
func (s *MemoryStore) Has(key string) bool {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	return ok
}

// Delete removes key. Missing keys are ignored.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// URL returns the display URL for key.
func (s *MemoryStore) URL(key string) string {
	return s.publicURL + "/" + key
}
