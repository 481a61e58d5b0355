package services

import (
	"context"
	"sort"
	"sync"

	contextutils "learnpath/internal/utils"
)

// ArtifactStore persists serialized model artifacts keyed by name. The
// mastery registry keeps one artifact per trained model plus one for the
// global classifier.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// MemoryArtifactStore is an in-process ArtifactStore. It backs tests and the
// adm CLI; the server wires the database-backed store instead.
type MemoryArtifactStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryArtifactStore creates an empty in-memory artifact store
func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{data: make(map[string][]byte)}
}

// Put stores a copy of data under key, replacing any previous value.
func (s *MemoryArtifactStore) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "artifact key must not be empty")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.mu.Lock()
	s.data[key] = buf
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the artifact stored under key.
func (s *MemoryArtifactStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "artifact %q not found", key)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Exists reports whether an artifact is stored under key.
func (s *MemoryArtifactStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	_, ok := s.data[key]
	s.mu.RUnlock()
	return ok, nil
}

// Keys lists the stored keys with the given prefix in sorted order.
func (s *MemoryArtifactStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}
