package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// TTLCache is a typed view over go-cache. Expired entries are evicted by the
// go-cache janitor every cleanup interval.
type TTLCache[T any] struct {
	items *gocache.Cache
	ttl   time.Duration
}

var _ Cache[int] = (*TTLCache[int])(nil)

// NewTTL creates a cache whose entries live for ttl.
func NewTTL[T any](ttl, cleanup time.Duration) *TTLCache[T] {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if cleanup <= 0 {
		cleanup = 2 * ttl
	}
	return &TTLCache[T]{
		items: gocache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	data, ok := v.(T)
	if !ok {
		return zero, false
	}
	return data, true
}

func (c *TTLCache[T]) Set(key string, data T) {
	c.items.Set(key, data, gocache.DefaultExpiration)
}

func (c *TTLCache[T]) Delete(key string) {
	c.items.Delete(key)
}

// Size counts items including ones that expired but were not yet evicted.
func (c *TTLCache[T]) Size() int {
	return c.items.ItemCount()
}

// CleanExpired evicts expired entries now and returns how many were removed.
func (c *TTLCache[T]) CleanExpired() int {
	before := c.items.ItemCount()
	c.items.DeleteExpired()
	return before - c.items.ItemCount()
}

// Flush drops every entry.
func (c *TTLCache[T]) Flush() {
	c.items.Flush()
}

// TTL returns the configured entry lifetime.
func (c *TTLCache[T]) TTL() time.Duration {
	return c.ttl
}
