package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache keeps hot entries in process memory in front of redis. Writes go to redis
// first; L1 copies live at most l1TTL, or the remaining redis ttl when that is shorter.
type LayeredCache struct {
	local  *MemoryCache
	remote *RedisCache
	l1TTL  time.Duration
}

func NewLayeredCache(local *MemoryCache, remote *RedisCache, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{local: local, remote: remote, l1TTL: l1TTL}
}

func (c *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := c.remote.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.local.Set(ctx, key, value, c.localTTL(ttl))
}

// Get falls through to redis on an L1 miss and backfills L1. A redis failure surfaces
// as the error while L1 still serves what it holds.
func (c *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := c.local.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := c.remote.Get(ctx, key, dest); err != nil {
		return err
	}
	ttl := c.l1TTL
	if left, err := c.remote.TTL(ctx, key); err == nil && left > 0 {
		ttl = c.localTTL(left)
	} else if errors.Is(err, ErrCacheMiss) {
		return nil
	}
	_ = c.local.Set(ctx, key, dest, ttl)
	return nil
}

func (c *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = c.local.Delete(ctx, keys...)
	return c.remote.Delete(ctx, keys...)
}

func (c *LayeredCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

func (c *LayeredCache) localTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > c.l1TTL {
		return c.l1TTL
	}
	return ttl
}

var _ Service = (*LayeredCache)(nil)
