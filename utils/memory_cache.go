package utils

import (
	"sync"
	"time"
)

// CacheItem represents a cached value with a sliding expiration
type CacheItem[V any] struct {
	Value      V
	Expiration time.Time
}

// MemoryCache is an in-memory cache whose entries expire after a period of
// no access. An optional eviction callback runs outside the lock.
type MemoryCache[V any] struct {
	items   map[string]*CacheItem[V]
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	onEvict func(key string, value V)
	keep    func(value V) bool
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryCache creates a cache and starts its cleanup loop. Call Close to stop it.
func NewMemoryCache[V any](ttl time.Duration, onEvict func(key string, value V)) *MemoryCache[V] {
	c := NewMemoryCacheWithClock(ttl, onEvict, time.Now)
	go c.cleanupLoop(time.Minute)
	return c
}

// NewMemoryCacheWithClock creates a cache that reads time from now and has no
// cleanup loop; callers run Cleanup themselves.
func NewMemoryCacheWithClock[V any](ttl time.Duration, onEvict func(string, V), now func() time.Time) *MemoryCache[V] {
	return &MemoryCache[V]{
		items:   make(map[string]*CacheItem[V]),
		ttl:     ttl,
		now:     now,
		onEvict: onEvict,
		stop:    make(chan struct{}),
	}
}

// KeepWhile makes expired entries for which keep returns true stay cached
// with a fresh expiration. keep is called with the cache lock held.
func (c *MemoryCache[V]) KeepWhile(keep func(value V) bool) *MemoryCache[V] {
	c.mu.Lock()
	c.keep = keep
	c.mu.Unlock()
	return c
}

// expired reports whether item should be dropped. An expired item that keep
// holds on to gets a fresh expiration instead. Must be called with c.mu held.
func (c *MemoryCache[V]) expired(item *CacheItem[V], now time.Time) bool {
	if !now.After(item.Expiration) {
		return false
	}
	if c.keep != nil && c.keep(item.Value) {
		item.Expiration = now.Add(c.ttl)
		return false
	}
	return true
}

// Get returns the value for key and refreshes its expiration.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || c.expired(item, c.now()) {
		var zero V
		return zero, false
	}
	item.Expiration = c.now().Add(c.ttl)
	return item.Value, true
}

// GetOrCreate returns the cached value for key, calling create when absent.
// An expired value is evicted before its replacement is created. create runs
// under the cache lock, so two callers never build the same key.
func (c *MemoryCache[V]) GetOrCreate(key string, create func() (V, error)) (V, error) {
	c.mu.Lock()
	if item, ok := c.items[key]; ok {
		if !c.expired(item, c.now()) {
			item.Expiration = c.now().Add(c.ttl)
			c.mu.Unlock()
			return item.Value, nil
		}
		delete(c.items, key)
		c.mu.Unlock()
		c.evict(key, item.Value)
		c.mu.Lock()

		// Another caller may have filled the key while the callback ran
		if item, ok := c.items[key]; ok && !c.expired(item, c.now()) {
			item.Expiration = c.now().Add(c.ttl)
			c.mu.Unlock()
			return item.Value, nil
		}
	}
	defer c.mu.Unlock()

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.items[key] = &CacheItem[V]{Value: value, Expiration: c.now().Add(c.ttl)}
	return value, nil
}

// Size returns the number of items in cache
func (c *MemoryCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Close stops the cleanup loop.
func (c *MemoryCache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Cleanup()
		case <-c.stop:
			return
		}
	}
}

// Cleanup removes expired items and runs the eviction callback for each.
func (c *MemoryCache[V]) Cleanup() {
	c.mu.Lock()
	now := c.now()
	var evicted []*CacheItem[V]
	var keys []string
	for key, item := range c.items {
		if c.expired(item, now) {
			delete(c.items, key)
			evicted = append(evicted, item)
			keys = append(keys, key)
		}
	}
	c.mu.Unlock()

	for i, item := range evicted {
		c.evict(keys[i], item.Value)
	}
}

func (c *MemoryCache[V]) evict(key string, value V) {
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}
