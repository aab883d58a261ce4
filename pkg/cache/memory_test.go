package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type entry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", entry{Name: "journal", Score: 72.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got entry
	if err := c.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "journal" || got.Score != 72.5 {
		t.Fatalf("unexpected value %+v", got)
	}
	if err := c.Get(ctx, "missing", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	_ = c.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	var s string
	if err := c.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryCache(WithMaxEntries(2))
	defer c.Close()
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1, time.Minute)
	_ = c.Set(ctx, "b", 2, time.Minute)
	var n int
	_ = c.Get(ctx, "a", &n)
	_ = c.Set(ctx, "c", 3, time.Minute)

	if c.Contains("b") {
		t.Fatalf("b should have been evicted")
	}
	if !c.Contains("a") || !c.Contains("c") {
		t.Fatalf("a and c should remain")
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
}

func TestMemoryCacheOverwriteKeepsSize(t *testing.T) {
	c := NewMemoryCache(WithMaxEntries(2))
	defer c.Close()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "a", 1, time.Minute)
	_ = c.Set(ctx, "a", 2, time.Hour)
	_ = c.Set(ctx, "b", 3, time.Minute)
	if c.Len() != 2 {
		t.Fatalf("overwrite must not grow the cache, got %d", c.Len())
	}

	now = now.Add(10 * time.Minute)
	c.dropExpired()
	var n int
	if err := c.Get(ctx, "a", &n); err != nil || n != 2 {
		t.Fatalf("overwritten entry should carry the new ttl, got %d, %v", n, err)
	}
	if c.Contains("b") || c.Len() != 1 {
		t.Fatalf("expired entry should be swept, len %d", c.Len())
	}
}

func TestNewSelectsBackend(t *testing.T) {
	c, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	defer c.Close()
	if _, ok := c.(*MemoryCache); !ok {
		t.Fatalf("expected memory cache by default, got %T", c)
	}
	if _, err := New(Config{Backend: BackendLayered}, nil); err == nil {
		t.Fatalf("layered backend requires redis")
	}
	if _, err := New(Config{Backend: "memcached"}, nil); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestGetOrLoad(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (entry, bool, error) {
		calls++
		return entry{Name: "x"}, true, nil
	}

	for i := 0; i < 2; i++ {
		v, _, err := GetOrLoad(ctx, c, "key", time.Minute, load)
		if err != nil || v.Name != "x" {
			t.Fatalf("unexpected %+v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single load, got %d", calls)
	}

	_, hit, _ := GetOrLoad(ctx, c, "skip", time.Minute, func(context.Context) (entry, bool, error) {
		return entry{}, false, nil
	})
	if hit {
		t.Fatalf("first lookup cannot be a hit")
	}
	if c.Contains("skip") {
		t.Fatalf("uncacheable values must not be stored")
	}
}

func TestKey(t *testing.T) {
	got := Key("trends:analysis", " Gratitude Journal ", "today 12-m", "US")
	if got != "trends:analysis:gratitude journal:today 12-m:us" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := Key("keepa:search", "journal", 20); got != "keepa:search:journal:20" {
		t.Fatalf("unexpected key %q", got)
	}
}
