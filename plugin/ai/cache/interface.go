// Package cache provides the read-through cache used in front of the session store.
package cache

import (
	"context"
	"time"
)

// CacheService defines the cache service interface.
type CacheService interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl: expiration time, the service default when <= 0
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate removes a single key.
	Invalidate(ctx context.Context, key string) error
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}
