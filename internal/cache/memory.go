package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory implements Cache in process memory. Nothing survives a restart, so
// it only suits tests and ephemeral runs.
type Memory struct {
	cache *gocache.Cache
}

// NewMemory constructs an in-memory cache. Expired entries are also reaped
// in the background every cleanupInterval; a non-positive interval disables
// the janitor and leaves sweeping to PurgeExpired.
func NewMemory(cleanupInterval time.Duration) *Memory {
	return &Memory{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Put stores payload under key with the given TTL.
func (c *Memory) Put(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	c.cache.Set(key, payload, ttl)
	return nil
}

// Get reads key, mapping absent and expired entries to ErrMiss.
func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return v.([]byte), nil
}

// PurgeExpired drops every expired entry now.
func (c *Memory) PurgeExpired(context.Context) error {
	c.cache.DeleteExpired()
	return nil
}
