package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"squeezerun/internal/telemetry/metrics"
)

// Mirror is an optional cold store behind the in-memory cache, used for
// long-TTL items (fundamentals, borrow, the FINRA daily file).
type Mirror interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Close() error
}

type entry[T any] struct {
	value   T
	expires time.Time
}

type call[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// TTLCache is an in-process cache with time-based expiry and request
// coalescing: on a miss one caller fetches while concurrent callers for
// the same key await the same result.
type TTLCache[T any] struct {
	name     string
	mu       sync.Mutex
	entries  map[string]*entry[T]
	inflight map[string]*call[T]
	mirror   Mirror
	now      func() time.Time
}

// New creates a named TTL cache. mirror may be nil.
func New[T any](name string, mirror Mirror) *TTLCache[T] {
	return &TTLCache[T]{
		name:     name,
		entries:  make(map[string]*entry[T]),
		inflight: make(map[string]*call[T]),
		mirror:   mirror,
		now:      time.Now,
	}
}

// Get returns a live entry without fetching.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expires) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the given TTL.
func (c *TTLCache[T]) Set(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry[T]{value: value, expires: c.now().Add(ttl)}
}

// GetOrFetch returns the cached value for key, or runs fetch exactly once
// per expiry window. Concurrent callers for the same key block on the
// in-flight fetch instead of duplicating it. A zero ttl bypasses the
// cache entirely (live data).
func (c *TTLCache[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	if ttl <= 0 {
		return fetch()
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		metrics.CacheLookups.WithLabelValues(c.name, "hit").Inc()
		return e.value, nil
	}

	if inflight, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		metrics.CacheLookups.WithLabelValues(c.name, "coalesced").Inc()
		select {
		case <-inflight.done:
			return inflight.value, inflight.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	cl := &call[T]{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()
	metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()

	cl.value, cl.err = c.fetchThrough(ctx, key, ttl, fetch)
	close(cl.done)

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil {
		c.entries[key] = &entry[T]{value: cl.value, expires: c.now().Add(ttl)}
	}
	c.mu.Unlock()

	return cl.value, cl.err
}

// fetchThrough consults the mirror before the origin fetch and writes
// fresh origin results back to it.
func (c *TTLCache[T]) fetchThrough(ctx context.Context, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	if c.mirror != nil {
		if raw, ok := c.mirror.Get(ctx, key); ok {
			var value T
			if err := json.Unmarshal(raw, &value); err == nil {
				return value, nil
			}
		}
	}

	value, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}

	if c.mirror != nil {
		if raw, err := json.Marshal(value); err == nil {
			c.mirror.Set(ctx, key, raw, ttl)
		}
	}
	return value, nil
}

// Clear drops all entries. Used between test runs.
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[T])
}
