// Package cache holds per-team best-record results guarded by an archive
// fingerprint and a time-to-live.
package cache

import (
	"sync"
	"time"

	"github.com/okian/benchboard/internal/domain/model"
	"github.com/okian/benchboard/pkg/metrics"
)

const defaultTTL = 300 * time.Second

// Cache is safe for concurrent use. Entries are values and are replaced whole.
// No method performs I/O.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]model.CacheEntry),
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the entry for teamID when it is usable against the current
// fingerprint. An entry is usable only if it is valid, its fingerprint equals
// current and it is younger than the TTL.
func (c *Cache) Get(teamID string, current model.Fingerprint) (model.CacheEntry, Status) {
	c.mu.RLock()
	e, ok := c.entries[teamID]
	c.mu.RUnlock()

	status := c.classify(e, ok, current)
	metrics.RecordCacheLookup(status.String())
	if status != Hit {
		return model.CacheEntry{}, status
	}
	return e, Hit
}

func (c *Cache) classify(e model.CacheEntry, ok bool, current model.Fingerprint) Status {
	switch {
	case !ok:
		return MissAbsent
	case !e.Valid:
		return MissInvalidated
	case e.Fingerprint != current:
		return MissFingerprint
	case c.now().Sub(e.ComputedAt) >= c.ttl:
		return MissExpired
	default:
		return Hit
	}
}

// Put installs entry for teamID, marking it valid.
func (c *Cache) Put(teamID string, entry model.CacheEntry) {
	entry.Valid = true
	c.mu.Lock()
	c.entries[teamID] = entry
	n := len(c.entries)
	c.mu.Unlock()
	metrics.UpdateCacheEntries(n)
}

// Invalidate marks the team's entry unusable. The entry is kept for
// diagnostics until the next Put.
func (c *Cache) Invalidate(teamID string) {
	c.mu.Lock()
	if e, ok := c.entries[teamID]; ok {
		e.Valid = false
		c.entries[teamID] = e
	}
	c.mu.Unlock()
	metrics.RecordCacheInvalidation()
}

// InvalidateAll marks every entry unusable.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	for id, e := range c.entries {
		e.Valid = false
		c.entries[id] = e
	}
	c.mu.Unlock()
	metrics.RecordCacheInvalidation()
}

// Diagnostics returns a per-team snapshot of the cache.
func (c *Cache) Diagnostics() map[string]model.CacheDiagnostics {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]model.CacheDiagnostics, len(c.entries))
	for id, e := range c.entries {
		out[id] = model.CacheDiagnostics{
			FileCount:       e.FileCount,
			LastScanTime:    e.ComputedAt,
			CacheAgeSeconds: now.Sub(e.ComputedAt).Seconds(),
			Valid:           e.Valid && now.Sub(e.ComputedAt) < c.ttl,
		}
	}
	return out
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
