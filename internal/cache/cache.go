// Package cache is the TTL response cache used for analytics and dashboard
// payloads. The default backend is the local store's cache table; Redis and
// in-memory backends cover hosted and ephemeral deployments.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/swift-wallet/swiftwallet-go/internal/localstore"
)

// ErrMiss is returned when the key is absent or its entry has expired.
var ErrMiss = errors.New("cache: miss")

// Cache stores opaque payloads under caller-chosen keys with per-entry TTLs.
type Cache interface {
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	PurgeExpired(ctx context.Context) error
}

// Local adapts the persistent local store's cache table to the Cache
// contract. This is the default backend for offline-capable clients.
type Local struct {
	store localstore.Store
}

// NewLocal wraps a local store.
func NewLocal(store localstore.Store) *Local {
	return &Local{store: store}
}

// Put upserts the entry for key.
func (c *Local) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return c.store.PutCache(ctx, key, payload, ttl)
}

// Get reads key, mapping an absent or expired row to ErrMiss.
func (c *Local) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := c.store.Cache(ctx, key)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, ErrMiss
	}
	return payload, err
}

// PurgeExpired sweeps expired rows from the underlying table.
func (c *Local) PurgeExpired(ctx context.Context) error {
	return c.store.PurgeExpiredCache(ctx)
}
