package cache

import (
	"context"
	"time"
)

const memoryCacheSize = 256

// MemoryStore adapts the LRU cache to the Store interface. It satisfies
// Cleaner, so it can be registered with a Manager for expiry sweeps.
type MemoryStore struct {
	lru *LRUCache[[]byte]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: NewLRUCache[[]byte](memoryCacheSize, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *MemoryStore) Set(_ context.Context, key string, data []byte) {
	m.lru.Set(key, data)
}

func (m *MemoryStore) Flush(context.Context) {
	m.lru.Reset()
}

func (m *MemoryStore) CleanExpired() int {
	return m.lru.CleanExpired()
}
