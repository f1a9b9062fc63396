package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "swiftwallet:cache:v1:"

// Redis implements Cache on a shared Redis instance for hosted deployments
// where several agent processes want one response cache.
type Redis struct {
	client *redis.Client
}

// NewRedisClient configures a Redis client from a URL and verifies
// connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Put stores payload under key with the given TTL.
func (c *Redis) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return c.client.Set(ctx, redisKeyPrefix+key, payload, ttl).Err()
}

// Get reads key, mapping redis.Nil to ErrMiss.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	return payload, err
}

// PurgeExpired is a no-op: Redis expires entries itself.
func (c *Redis) PurgeExpired(context.Context) error { return nil }
