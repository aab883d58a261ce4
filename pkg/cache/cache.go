package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is the lookup cache in front of the trend and marketplace sources.
// Values round-trip through JSON, so cached snapshots must be JSON-stable.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// GetOrLoad returns the cached value for key or calls load and caches its result.
// load reports through its bool whether the value is worth caching; read and write
// failures of the cache itself only cost a reload.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(context.Context) (T, bool, error)) (T, bool, error) {
	var v T
	if err := c.Get(ctx, key, &v); err == nil {
		return v, true, nil
	}
	v, keep, err := load(ctx)
	if err != nil {
		return v, false, err
	}
	if keep {
		_ = c.Set(ctx, key, v, ttl)
	}
	return v, false, nil
}

// Key joins a namespace and its parameters with colons. Strings are folded to lower case
// and trimmed, so " Gratitude Journal" and "gratitude journal" share an entry.
func Key(namespace string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range params {
		b.WriteByte(':')
		if s, ok := p.(string); ok {
			b.WriteString(strings.ToLower(strings.TrimSpace(s)))
			continue
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}

func encode(value interface{}) ([]byte, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("cache: encode %T: %w", value, err)
	}
	return data, nil
}

func decode(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache: decode into %T: %w", dest, err)
	}
	return nil
}
