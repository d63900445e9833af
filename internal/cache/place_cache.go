// Package cache provides an in-memory cache of geocoder results.
//
// Entries live for a fixed TTL. A background worker evicts expired entries;
// when the cache is full the oldest entry makes room for the new one. Only
// successful lookups are cached so a transient upstream failure is retried on
// the next request.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NixVir/whereami-web/internal/geocode"
	"github.com/NixVir/whereami-web/internal/metrics"
)

// Upstream is the geocoder the cache sits in front of.
type Upstream interface {
	Geocode(ctx context.Context, query string) (geocode.Place, error)
	GeocodeStructured(ctx context.Context, q geocode.Query) (geocode.Place, error)
}

// Config holds cache configuration.
type Config struct {
	TTL           time.Duration // Entry lifetime (default: 24h)
	MaxEntries    int           // Capacity (default: 1024)
	SweepInterval time.Duration // Eviction pass interval (default: 1m)
}

type entry struct {
	place  geocode.Place
	stored time.Time
}

// PlaceCache caches geocoder results. It satisfies the same interface as
// the upstream client and is safe for concurrent use.
type PlaceCache struct {
	mu      sync.RWMutex
	entries map[string]entry

	config   Config
	upstream Upstream
	logger   *slog.Logger
	nowFunc  func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a PlaceCache in front of upstream.
func New(upstream Upstream, config Config, logger *slog.Logger) *PlaceCache {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1024
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	logger.Info("geocode cache initialized",
		"ttl_seconds", config.TTL.Seconds(),
		"max_entries", config.MaxEntries,
	)
	return &PlaceCache{
		entries:  make(map[string]entry),
		config:   config,
		upstream: upstream,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Geocode answers from the cache or asks upstream.
func (c *PlaceCache) Geocode(ctx context.Context, query string) (geocode.Place, error) {
	key := "q:" + normalize(query)
	return c.lookup(key, func() (geocode.Place, error) {
		return c.upstream.Geocode(ctx, query)
	})
}

// GeocodeStructured answers from the cache or runs the upstream fallback chain.
func (c *PlaceCache) GeocodeStructured(ctx context.Context, q geocode.Query) (geocode.Place, error) {
	key := "s:" + strings.Join([]string{
		normalize(q.Full), normalize(q.City), normalize(q.State), normalize(q.Zip), normalize(q.Country),
	}, "|")
	return c.lookup(key, func() (geocode.Place, error) {
		return c.upstream.GeocodeStructured(ctx, q)
	})
}

func (c *PlaceCache) lookup(key string, fetch func() (geocode.Place, error)) (geocode.Place, error) {
	if p, ok := c.get(key); ok {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return p, nil
	}
	c.misses.Add(1)
	metrics.IncCacheMisses()

	p, err := fetch()
	if err != nil {
		return geocode.Place{}, err
	}
	c.put(key, p)
	return p, nil
}

func (c *PlaceCache) get(key string) (geocode.Place, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.nowFunc().Sub(e.stored) >= c.config.TTL {
		return geocode.Place{}, false
	}
	return e.place, true
}

// put stores p, evicting the oldest entry if the cache is full. Caller must
// not hold mu.
func (c *PlaceCache) put(key string, p geocode.Place) {
	now := c.nowFunc()

	c.mu.Lock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.MaxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.stored.Before(oldest) {
				oldestKey, oldest = k, e.stored
			}
		}
		delete(c.entries, oldestKey)
		c.evictions.Add(1)
		metrics.AddCacheEvictions(1)
	}
	c.entries[key] = entry{place: p, stored: now}
	count := len(c.entries)
	c.mu.Unlock()

	metrics.SetCacheEntries(count)
}

// evictExpired removes entries older than the TTL.
func (c *PlaceCache) evictExpired() int {
	cutoff := c.nowFunc().Add(-c.config.TTL)
	var removed int

	c.mu.Lock()
	for k, e := range c.entries {
		if !e.stored.After(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	count := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddCacheEvictions(removed)
		metrics.SetCacheEntries(count)
		c.logger.Debug("geocode cache eviction", "entries_removed", removed)
	}
	return removed
}

// Start runs the eviction worker until ctx is cancelled.
func (c *PlaceCache) Start(ctx context.Context) {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-ctx.Done():
			return
		}
	}
}

// Stats holds cache statistics.
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Stats returns current cache statistics.
func (c *PlaceCache) Stats() Stats {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Entries:   count,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
