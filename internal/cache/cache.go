// Package cache provides an in-memory TTL cache for model responses.
// Entries are keyed by a digest of the full prompt context so identical
// calls within the TTL window skip the provider round trip.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	value      string
	expiresAt  time.Time
	hits       int
	lastAccess time.Time
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

// Cache memoizes model responses with a TTL and a bounded entry count.
// When full, the least-frequently-used entry is evicted; ties break on
// least-recent access. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	ttl        time.Duration

	hits   int64
	misses int64
}

func New(maxEntries int, ttl time.Duration) *Cache {
	// A non-positive bound would never trigger eviction and grow the
	// map without limit.
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Key derives a stable cache key from the full prompt context. Round
// and persona participate so distinct turns never collide even when
// prompt text repeats.
func Key(systemPrompt, userPrompt, model, persona string, round int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%d", systemPrompt, userPrompt, model, persona, round)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return "", false
	}

	e.hits++
	e.lastAccess = time.Now()
	c.hits++
	return e.value, true
}

// Set stores value under key, evicting one entry if the cache is full.
// An optional ttl overrides the cache-wide default for this entry.
func (c *Cache) Set(key, value string, ttl ...time.Duration) {
	expiry := c.ttl
	if len(ttl) > 0 {
		expiry = ttl[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = &entry{
		value:      value,
		expiresAt:  now.Add(expiry),
		lastAccess: now,
	}
}

// Has reports whether key is present and unexpired, without counting
// toward hit/miss stats.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return ok && !time.Now().After(e.expiresAt)
}

// Delete removes key, reporting whether an entry was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear drops every entry. Stats counters are preserved.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

// evictLocked removes the least-frequently-used entry, breaking ties on
// the oldest access time. Expired entries are preferred victims.
func (c *Cache) evictLocked(now time.Time) {
	var victim string
	var victimEntry *entry

	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			victim = k
			break
		}
		if victimEntry == nil ||
			e.hits < victimEntry.hits ||
			(e.hits == victimEntry.hits && e.lastAccess.Before(victimEntry.lastAccess)) {
			victim = k
			victimEntry = e
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}

// StartSweeper launches a background goroutine that periodically drops
// expired entries. It stops when ctx is cancelled.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := c.sweep()
				if removed > 0 && logger != nil {
					logger.Debug("cache sweep", "removed", removed)
				}
			}
		}
	}()
}

func (c *Cache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}
