package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

type memoryIndex struct {
	members map[string]struct{}
	expires time.Time
}

// MemoryStore is an in-process Store. Expired entries are dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	indexes map[string]*memoryIndex
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		indexes: make(map[string]*memoryIndex),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.entries[key] = memoryEntry{value: v, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.entries, k)
		delete(s.indexes, k)
	}
	return nil
}

func (s *MemoryStore) AddToIndex(_ context.Context, index, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[index]
	if !ok || !s.now().Before(idx.expires) {
		idx = &memoryIndex{members: make(map[string]struct{})}
		s.indexes[index] = idx
	}
	idx.members[key] = struct{}{}
	idx.expires = s.now().Add(ttl + indexGrace)
	return nil
}

func (s *MemoryStore) Members(_ context.Context, index string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[index]
	if !ok || !s.now().Before(idx.expires) {
		delete(s.indexes, index)
		return nil, nil
	}
	out := make([]string, 0, len(idx.members))
	for k := range idx.members {
		out = append(out, k)
	}
	return out, nil
}
