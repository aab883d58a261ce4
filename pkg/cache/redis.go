package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries as JSON strings under an optional key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps a client that may be shared with the job queue. Close closes it.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache: redis get %s: %w", key, err)
	}
	return decode(data, dest)
}

// Delete unlinks the keys in one round trip.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Unlink(ctx, full...).Err()
}

// TTL reports the remaining lifetime of key, or ErrCacheMiss.
func (c *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.client.PTTL(ctx, c.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache: redis ttl %s: %w", key, err)
	}
	// redis answers -2 for a missing key and -1 for one without expiry.
	switch {
	case d == -2:
		return 0, ErrCacheMiss
	case d < 0:
		return 0, nil
	}
	return d, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

var _ Service = (*RedisCache)(nil)
