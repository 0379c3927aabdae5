package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryCache implements Cache with an in-process map. Suitable for tests
// and single-instance deployments; production uses RedisCache.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]*memoryEntry
	stopCh  chan struct{}
	stopped sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryCache creates an in-memory cache with periodic expiry cleanup.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		items:  make(map[string]*memoryEntry),
		stopCh: make(chan struct{}),
	}
	go c.cleanupLoop(time.Minute)
	return c
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for k, e := range c.items {
				if e.expired(now) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Get returns the value for key or ErrCacheMiss.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set stores value under key with the given TTL.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}

	e := &memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
	return nil
}

// Increment atomically adds delta to the counter at key. The TTL is applied
// only when the counter is created.
func (c *MemoryCache) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if key == "" {
		return 0, ErrInvalidKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var current int64
	if e, ok := c.items[key]; ok && !e.expired(now) {
		current, _ = strconv.ParseInt(string(e.value), 10, 64)
		current += delta
		e.value = []byte(strconv.FormatInt(current, 10))
		return current, nil
	}

	current = delta
	e := &memoryEntry{value: []byte(strconv.FormatInt(current, 10))}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	c.items[key] = e
	return current, nil
}

// GetCounter returns the counter at key, 0 when absent.
func (c *MemoryCache) GetCounter(ctx context.Context, key string) (int64, error) {
	value, err := c.Get(ctx, key)
	if err != nil {
		if err == ErrCacheMiss {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes the given keys.
func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.mu.Unlock()
	return nil
}

// HealthCheck always succeeds for the in-memory backend.
func (c *MemoryCache) HealthCheck(ctx context.Context) error {
	return nil
}

// Close stops the cleanup loop.
func (c *MemoryCache) Close() error {
	c.stopped.Do(func() { close(c.stopCh) })
	return nil
}
