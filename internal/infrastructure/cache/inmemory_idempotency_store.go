package cache

import (
	"context"
	"sync"
	"time"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultLocalIdempotencySize = 100_000

// InMemoryIdempotencyStore implements shared.IdempotencyStore in process.
// Entries carry their own deadline; the LRU bounds memory and drops entries
// after maxTTL regardless of the per-key TTL.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, time.Time]
}

// NewInMemoryIdempotencyStore creates a store holding at most size keys
func NewInMemoryIdempotencyStore(size int, maxTTL time.Duration) *InMemoryIdempotencyStore {
	if size <= 0 {
		size = defaultLocalIdempotencySize
	}
	if maxTTL <= 0 {
		maxTTL = shared.DefaultIdempotencyConfig().TTL
	}
	return &InMemoryIdempotencyStore{
		entries: expirable.NewLRU[string, time.Time](size, nil, maxTTL),
	}
}

// MarkProcessed marks a key with a TTL.
// Returns true if the key was newly marked, false if it is still live.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if deadline, ok := s.entries.Peek(key); ok && now.Before(deadline) {
		return false, nil
	}
	s.entries.Add(key, now.Add(ttl))
	return true, nil
}

// IsProcessed checks whether the key is marked and not expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.entries.Peek(key)
	return ok && time.Now().Before(deadline), nil
}

// Close drops every entry; safe to call multiple times
func (s *InMemoryIdempotencyStore) Close() error {
	s.entries.Purge()
	return nil
}

// Size returns the number of entries held, including expired ones not yet evicted
func (s *InMemoryIdempotencyStore) Size() int {
	return s.entries.Len()
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
