package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Entries stored without a ttl live for a week, the longest source ttl in use.
const defaultMemoryTTL = 7 * 24 * time.Hour

type MemoryOption func(*MemoryCache)

func WithMaxEntries(n int) MemoryOption {
	return func(m *MemoryCache) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithSweepInterval sets how often expired entries are dropped in the background.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(m *MemoryCache) {
		if d > 0 {
			m.sweep = d
		}
	}
}

type memEntry struct {
	key      string
	data     []byte
	expireAt time.Time
}

// MemoryCache is a bounded LRU map. The front of order is the most recently used entry.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List
	maxEntries int
	sweep      time.Duration
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	m := &MemoryCache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: 1000,
		sweep:      time.Minute,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.sweeper()
	return m
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(key, data, m.now().Add(ttl))
	return nil
}

func (m *MemoryCache) put(key string, data []byte, expireAt time.Time) {
	if el, ok := m.items[key]; ok {
		e := el.Value.(*memEntry)
		e.data, e.expireAt = data, expireAt
		m.order.MoveToFront(el)
		return
	}
	for m.order.Len() >= m.maxEntries {
		m.remove(m.order.Back())
	}
	m.items[key] = m.order.PushFront(&memEntry{key: key, data: data, expireAt: expireAt})
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	el, ok := m.items[key]
	if !ok {
		m.mu.Unlock()
		return ErrCacheMiss
	}
	e := el.Value.(*memEntry)
	if !m.now().Before(e.expireAt) {
		m.remove(el)
		m.mu.Unlock()
		return ErrCacheMiss
	}
	m.order.MoveToFront(el)
	data := e.data
	m.mu.Unlock()
	return decode(data, dest)
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if el, ok := m.items[k]; ok {
			m.remove(el)
		}
	}
	return nil
}

// Contains reports whether key holds a live entry without touching its recency.
func (m *MemoryCache) Contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	return ok && m.now().Before(el.Value.(*memEntry).expireAt)
}

// Len counts stored entries, expired ones included until the next sweep.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *MemoryCache) remove(el *list.Element) {
	if el == nil {
		return
	}
	m.order.Remove(el)
	delete(m.items, el.Value.(*memEntry).key)
}

func (m *MemoryCache) sweeper() {
	t := time.NewTicker(m.sweep)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.dropExpired()
		}
	}
}

func (m *MemoryCache) dropExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*memEntry).expireAt) {
			m.remove(el)
		}
		el = prev
	}
}

// Close stops the sweeper. The cache stays usable.
func (m *MemoryCache) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

var _ Service = (*MemoryCache)(nil)
