// Package cache implements a per-(function, key) value cache with TTL,
// periodic eviction, and a process-wide vault that can freeze every
// registered cache into a point-in-time-consistent snapshot mode.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// rehashEvery controls how often (in successful accesses) a cache sweeps
// its map for TTL-expired entries, per spec §4.3 ("implementation-defined
// ≈ 20 000").
const rehashEvery = 20000

var (
	metricOnce sync.Once
	hitTotal   *prometheus.CounterVec
)

func metrics() *prometheus.CounterVec {
	metricOnce.Do(func() {
		hitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "core_cache_total",
			Help: "Cache lookups by cache name and outcome (hit|miss|evict).",
		}, []string{"cache", "outcome"})
		prometheus.MustRegister(hitTotal)
	})
	return hitTotal
}

// Fetcher produces a fresh value for a given key tuple, e.g. an HTTP
// call into an exchange adapter.
type Fetcher func(args ...any) (any, error)

type entry struct {
	value      any
	lastRefesh time.Time
}

// Cache maps a tuple of argument keys to a (value, last_refresh_time)
// pair, with TTL-based refresh and an optional "forced" (frozen) mode.
type Cache struct {
	mu       sync.Mutex
	name     string
	ttl      time.Duration
	fn       Fetcher
	data     map[string]entry
	accesses int
	frozen   bool
}

// New builds a Cache named name, with the given TTL and underlying
// fetch function.
func New(name string, ttl time.Duration, fn Fetcher) *Cache {
	return &Cache{name: name, ttl: ttl, fn: fn, data: make(map[string]entry)}
}

func keyOf(args []any) string {
	s := ""
	for _, a := range args {
		s += "\x1f"
		s += fmt.Sprint(a)
	}
	return s
}

// Get returns the cached value for args, refreshing it via the
// underlying Fetcher if there is no entry or the entry's age has reached
// the TTL. In frozen (forced-cache) mode, an existing entry is returned
// whatever its age; only a key with no entry is fetched, and that value
// is then held regardless of TTL.
func (c *Cache) Get(args ...any) (any, error) {
	k := keyOf(args)
	c.mu.Lock()
	e, found := c.data[k]
	now := time.Now()
	needsRefresh := !found || (!c.frozen && now.Sub(e.lastRefesh) >= c.ttl) || (c.frozen && !found)
	if !needsRefresh {
		c.accesses++
		if c.accesses >= rehashEvery {
			c.evictLocked(now)
			c.accesses = 0
		}
	}
	c.mu.Unlock()

	if !needsRefresh {
		metrics().WithLabelValues(c.name, "hit").Inc()
		return e.value, nil
	}

	v, err := c.fn(args...)
	if err != nil {
		metrics().WithLabelValues(c.name, "miss").Inc()
		if found {
			return e.value, err
		}
		return nil, err
	}
	metrics().WithLabelValues(c.name, "miss").Inc()
	c.mu.Lock()
	c.data[k] = entry{value: v, lastRefesh: now}
	c.accesses++
	if c.accesses >= rehashEvery {
		c.evictLocked(now)
		c.accesses = 0
	}
	c.mu.Unlock()
	return v, nil
}

// Set inserts or overwrites the cached entry for args, but only if t is
// strictly newer than the stored entry's timestamp. Used to seed the
// cache from an external source (e.g. a persisted file) at startup.
func (c *Cache) Set(value any, t time.Time, args ...any) {
	k := keyOf(args)
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.data[k]; ok && !t.After(e.lastRefesh) {
		return
	}
	c.data[k] = entry{value: value, lastRefesh: t}
}

// Retrieve is a non-mutating lookup; it never triggers a refresh.
func (c *Cache) Retrieve(args ...any) (value any, has bool, refreshedAt time.Time) {
	k := keyOf(args)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[k]
	if !ok {
		return nil, false, time.Time{}
	}
	return e.value, true, e.lastRefesh
}

// evictLocked drops every entry older than the TTL. Caller must hold mu.
func (c *Cache) evictLocked(now time.Time) {
	evicted := 0
	for k, e := range c.data {
		if now.Sub(e.lastRefesh) >= c.ttl {
			delete(c.data, k)
			evicted++
		}
	}
	if evicted > 0 {
		metrics().WithLabelValues(c.name, "evict").Add(float64(evicted))
	}
}

// freeze puts the cache into forced-cache mode: Get never refreshes on
// TTL expiry, only on a true miss.
func (c *Cache) freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

// unfreeze restores normal TTL-based refresh behavior.
func (c *Cache) unfreeze() {
	c.mu.Lock()
	c.frozen = false
	c.mu.Unlock()
}
