// Package memory provides an in-process cache for single-node deployments
// where Redis is not configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/prn-tf/reelhub/internal/repository"
)

const defaultSweepInterval = time.Minute

// Cache implements repository.Cache with a mutex-guarded map. Entries are
// private to the process, so multi-instance deployments should use Redis.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int

	stop     chan struct{}
	stopOnce sync.Once
}

// entry holds a private copy of the value. A zero expires means no TTL.
type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// Option configures a Cache.
type Option func(*Cache, *time.Duration)

// WithSweepInterval sets how often expired entries are purged.
func WithSweepInterval(d time.Duration) Option {
	return func(_ *Cache, interval *time.Duration) {
		if d > 0 {
			*interval = d
		}
	}
}

// WithMaxEntries bounds the cache size. When full, the entry closest to
// expiry is evicted to make room. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache, _ *time.Duration) {
		c.maxEntries = n
	}
}

// NewCache creates a cache and starts its sweeper. Call Stop to release it.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	interval := defaultSweepInterval
	for _, opt := range opts {
		opt(c, &interval)
	}
	go c.sweepLoop(interval)
	return c
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			c.sweep(now)
			c.mu.Unlock()
		}
	}
}

// sweep drops expired entries. Callers hold the write lock.
func (c *Cache) sweep(now time.Time) {
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}

// evictOne removes the entry expiring soonest; entries without a TTL go last.
// Callers hold the write lock.
func (c *Cache) evictOne() {
	var (
		victim string
		best   time.Time
		found  bool
	)
	for key, e := range c.entries {
		switch {
		case !found:
			victim, best, found = key, e.expires, true
		case best.IsZero() && !e.expires.IsZero():
			victim, best = key, e.expires
		case !e.expires.IsZero() && e.expires.Before(best):
			victim, best = key, e.expires
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

// Stop halts the sweeper. It is safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Get returns a copy of the value stored under key, or repository.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, repository.ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value. A non-positive ttl keeps it until deleted.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.sweep(now)
		if len(c.entries) >= c.maxEntries {
			c.evictOne()
		}
	}
	c.entries[key] = e
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.DeleteMulti(ctx, key)
}

// DeleteMulti removes every key; missing keys are ignored.
func (c *Cache) DeleteMulti(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}

var _ repository.Cache = (*Cache)(nil)
