package domain

import (
	"context"
	"time"
)

// Cache defines the interface for report caching. Reports are read far
// more often than they are produced, so the API serves them from cache
// before falling back to the repository.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetReport retrieves a cached report by run ID.
	GetReport(ctx context.Context, runID string) (*Report, error)

	// SetReport caches a report under its run ID.
	SetReport(ctx context.Context, report *Report, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns the
	// new value. Used to bound per-run event publication.
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings
	LocalMaxSize int
	LocalTTL     int // seconds

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
