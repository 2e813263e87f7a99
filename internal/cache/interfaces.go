package cache

import "context"

// CountCache caches the authenticated badge count per session token.
// The count endpoint is cheaper than a full cart fetch, so the navbar
// badge reads through this cache; every item mutation invalidates it.
// This abstraction allows swapping between memory cache (development)
// and Redis cache (production) without changing business logic.
type CountCache interface {
	// Get retrieves a cached count. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, token string) (int, error)

	// Set stores a count for the configured TTL.
	Set(ctx context.Context, token string, count int) error

	// Invalidate removes a cached count.
	Invalidate(ctx context.Context, token string) error

	// Close releases the cache's resources (background cleanup,
	// connections).
	Close() error
}

// CacheError is a sentinel error type for cache operations.
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the token was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
