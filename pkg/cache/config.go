package cache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backends understood by New.
const (
	BackendMemory  = "memory"
	BackendRedis   = "redis"
	BackendLayered = "layered"
)

// Config selects and sizes a cache backend.
type Config struct {
	Backend string
	// Prefix namespaces redis keys so several deployments can share one server.
	Prefix     string
	MaxEntries int
	Sweep      time.Duration
	// L1TTL caps how long the layered backend keeps an entry in process memory.
	L1TTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1000
	}
	if c.Sweep <= 0 {
		c.Sweep = time.Minute
	}
	if c.L1TTL <= 0 {
		c.L1TTL = 5 * time.Minute
	}
	return c
}

// New builds the configured backend. The redis backed ones take ownership of rc and close
// it on Close.
func New(cfg Config, rc *redis.Client) (Service, error) {
	cfg = cfg.withDefaults()
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryCache(WithMaxEntries(cfg.MaxEntries), WithSweepInterval(cfg.Sweep)), nil
	case BackendRedis, BackendLayered:
		if rc == nil {
			return nil, fmt.Errorf("cache: %s backend needs a redis client", cfg.Backend)
		}
		remote := NewRedisCache(rc, cfg.Prefix)
		if cfg.Backend == BackendRedis {
			return remote, nil
		}
		local := NewMemoryCache(WithMaxEntries(cfg.MaxEntries), WithSweepInterval(cfg.Sweep))
		return NewLayeredCache(local, remote, cfg.L1TTL), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}
