// Package cache provides a generic TTL cache
package cache

import (
	"context"
	"sync"
	"time"
)

// item wraps a cached value with its expiration time
type item[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a generic thread-safe cache with TTL expiration
type Cache[T any] struct {
	items   map[string]item[T]
	mu      sync.RWMutex
	ttl     time.Duration
	onEvict func(key string, value T)
	stop    chan struct{}
	once    sync.Once
}

// Option configures a Cache
type Option[T any] func(*Cache[T])

// WithEvictFunc registers a callback invoked when an entry expires or is deleted.
// The callback runs without the cache lock held.
func WithEvictFunc[T any](fn func(key string, value T)) Option[T] {
	return func(c *Cache[T]) { c.onEvict = fn }
}

// New creates a cache with the specified TTL
func New[T any](ttl time.Duration, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		items: make(map[string]item[T]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.cleanup()
	return c
}

// Get retrieves a value, returning (value, true) if found and not expired
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiresAt) {
		var zero T
		return zero, false
	}
	return item.value, true
}

// Set stores a value with the cache's TTL
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[T]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Touch extends the expiry of a live entry; it reports whether the key was present
func (c *Cache[T]) Touch(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, exists := c.items[key]
	if !exists || time.Now().After(it.expiresAt) {
		return false
	}
	it.expiresAt = time.Now().Add(c.ttl)
	c.items[key] = it
	return true
}

// Fetch returns the cached value for key, calling load and caching its result on a miss.
// Errors from load are returned as-is and are not cached.
func (c *Cache[T]) Fetch(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes a key from the cache
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	it, exists := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()

	if exists && c.onEvict != nil {
		c.onEvict(key, it.value)
	}
}

// Size returns the number of items (including expired)
func (c *Cache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the background cleanup goroutine. It is safe to call more than once.
func (c *Cache[T]) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanup runs periodically to remove expired items
func (c *Cache[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[T]) removeExpired() {
	now := time.Now()
	evicted := make(map[string]T)

	c.mu.Lock()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			evicted[key] = item.value
		}
	}
	c.mu.Unlock()

	if c.onEvict == nil {
		return
	}
	for key, value := range evicted {
		c.onEvict(key, value)
	}
}
