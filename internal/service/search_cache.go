package service

import (
	"context"
	"errors"
	"sync"
	"time"
)

const searchCacheNamespace = "products.search"

// ErrSearchCacheStale is returned by Set when the namespace was invalidated
// after the caller read its generation.
var ErrSearchCacheStale = errors.New("search cache namespace advanced since read")

// SearchCacheStore holds serialized search pages grouped by namespace so a
// single mutation can drop every cached page at once. Writers read the
// namespace generation before querying the store and pass it to Set, which
// discards the write if an invalidation happened in between.
type SearchCacheStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Generation(ctx context.Context, namespace string) (uint64, error)
	Set(ctx context.Context, namespace, key string, generation uint64, value []byte, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type NoopSearchCacheStore struct{}

func NewNoopSearchCacheStore() *NoopSearchCacheStore {
	return &NoopSearchCacheStore{}
}

func (s *NoopSearchCacheStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *NoopSearchCacheStore) Generation(context.Context, string) (uint64, error) {
	return 0, nil
}

func (s *NoopSearchCacheStore) Set(context.Context, string, string, uint64, []byte, time.Duration) error {
	return nil
}

func (s *NoopSearchCacheStore) InvalidateNamespace(context.Context, string) error {
	return nil
}

type memoryCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

type InMemorySearchCacheStore struct {
	mu          sync.RWMutex
	now         func() time.Time
	store       map[string]map[string]memoryCacheEntry
	generations map[string]uint64
}

func NewInMemorySearchCacheStore() *InMemorySearchCacheStore {
	return &InMemorySearchCacheStore{
		now:         time.Now,
		store:       make(map[string]map[string]memoryCacheEntry),
		generations: make(map[string]uint64),
	}
}

func (s *InMemorySearchCacheStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.store[namespace][key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		if ns, ok := s.store[namespace]; ok {
			if current, ok := ns[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
				delete(ns, key)
			}
			if len(ns) == 0 {
				delete(s.store, namespace)
			}
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (s *InMemorySearchCacheStore) Generation(_ context.Context, namespace string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[namespace], nil
}

func (s *InMemorySearchCacheStore) Set(_ context.Context, namespace, key string, generation uint64, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[namespace] != generation {
		return ErrSearchCacheStale
	}
	ns, ok := s.store[namespace]
	if !ok {
		ns = make(map[string]memoryCacheEntry)
		s.store[namespace] = ns
	}
	ns[key] = memoryCacheEntry{
		payload:   append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *InMemorySearchCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[namespace]++
	delete(s.store, namespace)
	return nil
}
