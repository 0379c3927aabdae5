// Package cache provides the key-value store used for sync health counters
// and dashboard aggregate memoization. Counters carry a TTL so health state
// ages out instead of accumulating forever; there is no ambient global
// state, callers receive an injected Cache.
package cache

import (
	"context"
	"errors"
	"time"
)

// Common cache errors
var (
	ErrCacheMiss  = errors.New("cache miss")
	ErrInvalidKey = errors.New("invalid cache key")
)

// Cache defines the key-value interface with TTL semantics.
type Cache interface {
	// Get returns the value for key or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Increment atomically adds delta to the integer counter at key,
	// creating it with the given TTL when absent, and returns the new value.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// GetCounter returns the current counter value, 0 when absent.
	GetCounter(ctx context.Context, key string) (int64, error)

	// Delete removes the given keys.
	Delete(ctx context.Context, keys ...string) error

	// HealthCheck reports backend liveness.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
