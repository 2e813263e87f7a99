package cache

import (
	"context"
	"sync"
	"time"
)

// countEntry represents a cached count with expiration.
type countEntry struct {
	count     int
	expiresAt time.Time
}

// isExpired checks if the entry has expired.
func (e *countEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// MemoryCountCache is an in-memory implementation of CountCache.
// Use this for development/testing or single-instance deployments.
type MemoryCountCache struct {
	mu      sync.RWMutex
	entries map[string]*countEntry
	ttl     time.Duration

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// NewMemoryCountCache creates a new in-memory count cache with automatic cleanup.
func NewMemoryCountCache(ttl time.Duration) *MemoryCountCache {
	c := &MemoryCountCache{
		entries:         make(map[string]*countEntry),
		ttl:             ttl,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Get retrieves a cached count by token.
func (c *MemoryCountCache) Get(ctx context.Context, token string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[token]
	if !exists || entry.isExpired() {
		return 0, ErrCacheMiss
	}

	return entry.count, nil
}

// Set stores a count for the configured TTL.
func (c *MemoryCountCache) Set(ctx context.Context, token string, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[token] = &countEntry{
		count:     count,
		expiresAt: time.Now().Add(c.ttl),
	}

	return nil
}

// Invalidate removes a cached count by token.
func (c *MemoryCountCache) Invalidate(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, token)
	return nil
}

// Close stops the background cleanup goroutine.
func (c *MemoryCountCache) Close() error {
	close(c.stopCleanup)
	return nil
}

// cleanup periodically removes expired entries.
func (c *MemoryCountCache) cleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// removeExpired removes all expired entries.
func (c *MemoryCountCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for token, entry := range c.entries {
		if entry.isExpired() {
			delete(c.entries, token)
		}
	}
}

// Ensure MemoryCountCache implements CountCache
var _ CountCache = (*MemoryCountCache)(nil)
