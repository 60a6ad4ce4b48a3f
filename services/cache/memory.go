package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned by MemoryCache when a key is absent or expired
var ErrCacheMiss = errors.New("cache: miss")

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process CacheService. Used when no memcache is
// configured and in tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get retrieves a live value
func (m *MemoryCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value with an expiration time
func (m *MemoryCache) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if expiration > 0 {
		entry.expiresAt = time.Now().Add(expiration)
	}
	m.entries[key] = entry
	return nil
}

// Delete removes a value
func (m *MemoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
