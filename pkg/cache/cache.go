package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuemby/akdstore/pkg/log"
	"github.com/cuemby/akdstore/pkg/record"
	"github.com/rs/zerolog"
)

const (
	defaultItemLifetime   = 30 * time.Second
	defaultLimitBytes     = 64 * 1024 * 1024
	defaultCleanFrequency = 10 * time.Second
)

// Config configures a Cache's eviction behavior. Zero values are
// replaced by sensible defaults in New.
type Config struct {
	// ItemLifetime is the per-entry TTL.
	ItemLifetime time.Duration `yaml:"item_lifetime"`
	// LimitBytes is the soft byte budget; the cleaner evicts oldest-first
	// once the estimated total exceeds it.
	LimitBytes int64 `yaml:"limit_bytes"`
	// CleanFrequency is the minimum interval between cleaner sweeps.
	CleanFrequency time.Duration `yaml:"clean_frequency"`
}

// DefaultConfig returns the package's default eviction policy.
func DefaultConfig() Config {
	return Config{
		ItemLifetime:   defaultItemLifetime,
		LimitBytes:     defaultLimitBytes,
		CleanFrequency: defaultCleanFrequency,
	}
}

type entry struct {
	rec   record.Record
	born  time.Time
	bytes int
}

// Cache is a typed, in-memory, TTL-and-byte-budget-bounded object cache
// whose background sweep can be paused across a transaction's lifetime
// (see DisableClean/EnableClean).
type Cache struct {
	cfg Config

	mu         sync.Mutex
	items      map[record.Key]*entry
	totalBytes int64
	pauseCount int
	pausedAt   time.Time

	hits   atomic.Uint64
	misses atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	logger   zerolog.Logger
}

// New creates a Cache and starts its background cleaner goroutine.
func New(cfg Config) *Cache {
	if cfg.ItemLifetime <= 0 {
		cfg.ItemLifetime = defaultItemLifetime
	}
	if cfg.LimitBytes <= 0 {
		cfg.LimitBytes = defaultLimitBytes
	}
	if cfg.CleanFrequency <= 0 {
		cfg.CleanFrequency = defaultCleanFrequency
	}

	c := &Cache{
		cfg:    cfg,
		items:  make(map[record.Key]*entry),
		stopCh: make(chan struct{}),
		logger: log.WithComponent("cache"),
	}
	go c.loop()
	return c
}

// Close stops the background cleaner. It does not flush entries.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Put admits a single record into the cache.
func (c *Cache) Put(rec record.Record) {
	c.BatchPut([]record.Record{rec})
}

// BatchPut admits a batch of records into the cache.
func (c *Cache) BatchPut(recs []record.Record) {
	if len(recs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for _, rec := range recs {
		c.putLocked(rec, now)
	}
}

func (c *Cache) putLocked(rec record.Record, born time.Time) {
	key := rec.StorageKey()
	if old, ok := c.items[key]; ok {
		c.totalBytes -= int64(old.bytes)
	}
	size := rec.ApproxSize()
	c.items[key] = &entry{rec: rec, born: born, bytes: size}
	c.totalBytes += int64(size)
}

// HitTest returns the cached record for key if present and not expired.
func (c *Cache) HitTest(key record.Key) (record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if c.pauseCount == 0 && time.Since(e.born) > c.cfg.ItemLifetime {
		delete(c.items, key)
		c.totalBytes -= int64(e.bytes)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.rec, true
}

// Flush drops every cached entry.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[record.Key]*entry)
	c.totalBytes = 0
}

// DisableClean pauses the background sweep and the TTL check in
// HitTest. Calls nest: the sweep resumes only once EnableClean has been
// called as many times as DisableClean.
func (c *Cache) DisableClean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pauseCount == 0 {
		c.pausedAt = time.Now()
	}
	c.pauseCount++
}

// EnableClean undoes one DisableClean. When the pause count returns to
// zero, entries admitted during the paused window have their birth time
// reset to now, so they are not immediately considered expired; entries
// that predate the pause keep aging from their original birth time.
func (c *Cache) EnableClean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pauseCount == 0 {
		return
	}
	c.pauseCount--
	if c.pauseCount == 0 {
		now := time.Now()
		for _, e := range c.items {
			if !e.born.Before(c.pausedAt) {
				e.born = now
			}
		}
	}
}

// Stats returns the cache's current hit/miss counters, entry count, and
// estimated byte usage, for external exporters such as pkg/metrics.
func (c *Cache) Stats() (hits, misses uint64, entries int, bytes int64) {
	c.mu.Lock()
	entries = len(c.items)
	bytes = c.totalBytes
	c.mu.Unlock()
	return c.hits.Load(), c.misses.Load(), entries, bytes
}

// LogMetrics reports cache hit/miss counters at the given level.
func (c *Cache) LogMetrics(level zerolog.Level) {
	c.mu.Lock()
	size := len(c.items)
	bytes := c.totalBytes
	c.mu.Unlock()

	c.logger.WithLevel(level).
		Uint64("hits", c.hits.Load()).
		Uint64("misses", c.misses.Load()).
		Int("entries", size).
		Int64("bytes", bytes).
		Msg("cache metrics")
}

func (c *Cache) loop() {
	ticker := time.NewTicker(c.cfg.CleanFrequency)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pauseCount > 0 {
		return
	}

	now := time.Now()
	for key, e := range c.items {
		if now.Sub(e.born) > c.cfg.ItemLifetime {
			delete(c.items, key)
			c.totalBytes -= int64(e.bytes)
		}
	}

	if c.totalBytes <= c.cfg.LimitBytes {
		return
	}
	c.evictOldestLocked()
}

// evictOldestLocked evicts entries oldest-first until the cache is back
// under its byte budget. Oldest-first is sufficient per the cache
// contract; it is not observable through the public API.
func (c *Cache) evictOldestLocked() {
	ordered := make([]bornKey, 0, len(c.items))
	for k, e := range c.items {
		ordered = append(ordered, bornKey{key: k, born: e.born})
	}
	sortByBorn(ordered)

	for _, ke := range ordered {
		if c.totalBytes <= c.cfg.LimitBytes {
			return
		}
		e := c.items[ke.key]
		delete(c.items, ke.key)
		c.totalBytes -= int64(e.bytes)
	}
}
