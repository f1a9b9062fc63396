package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/swift-wallet/swiftwallet-go/internal/localstore"
)

func TestLocalBackend(t *testing.T) {
	c := NewLocal(localstore.NewMemory())
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Put(ctx, "k", []byte("v"), time.Minute))
	payload, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", string(payload))
}

func TestRedisBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := NewRedis(client)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "analytics:7", []byte("payload"), time.Minute))

	payload, err := c.Get(ctx, "analytics:7")
	require.NoError(t, err)
	require.Equal(t, "payload", string(payload))

	// Past the TTL the entry is gone.
	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "analytics:7")
	require.ErrorIs(t, err, ErrMiss)
}

func TestRedisBackendLatestWins(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := NewRedis(client)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", []byte("first"), time.Minute))
	require.NoError(t, c.Put(ctx, "k", []byte("second"), time.Minute))

	payload, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "second", string(payload))
}

func TestMemoryBackend(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", []byte("v"), 10*time.Millisecond))
	payload, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", string(payload))

	time.Sleep(20 * time.Millisecond)
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.PurgeExpired(ctx))
}
