package pool

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"adaptivepool/pkg/logger"
)

// statementMaxAge is how long a never-reused statement may stay cached
// before a cleanup pass drops it.
const statementMaxAge = time.Hour

// StatementCache is a capacity-bounded cache of statement metadata keyed by
// query fingerprint. A mutex guards the map; every touch mutates it.
type StatementCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*statementEntry
}

type statementEntry struct {
	query      string
	createdAt  time.Time
	usageCount int64
}

// NewStatementCache creates a cache bounded to the given capacity.
func NewStatementCache(capacity int) *StatementCache {
	return &StatementCache{
		capacity: capacity,
		entries:  make(map[string]*statementEntry),
	}
}

// Fingerprint derives the stable cache key for a query: the sha256 of its
// whitespace-normalized text.
func Fingerprint(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Touch records a use of the query. Present entries get their usage count
// incremented; absent ones are inserted while there is room. A full cache
// skips the insert silently, it is not an error.
func (c *StatementCache) Touch(query string) {
	c.touchAt(query, time.Now())
}

func (c *StatementCache) touchAt(query string, now time.Time) {
	key := Fingerprint(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.usageCount++
		return
	}
	if len(c.entries) < c.capacity {
		c.entries[key] = &statementEntry{
			query:      strings.Join(strings.Fields(query), " "),
			createdAt:  now,
			usageCount: 1,
		}
	}
}

// Cleanup drops statements that aged past statementMaxAge without ever being
// reused, then evicts the least-used entries until the cache fits its
// capacity again.
func (c *StatementCache) Cleanup() {
	c.cleanupAt(time.Now())
}

func (c *StatementCache) cleanupAt(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	initial := len(c.entries)
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) > statementMaxAge && entry.usageCount <= 1 {
			delete(c.entries, key)
		}
	}
	if aged := initial - len(c.entries); aged > 0 {
		logger.Debugf("statement cache cleanup removed %d aged statements", aged)
	}

	if len(c.entries) <= c.capacity {
		return
	}

	type usage struct {
		key       string
		count     int64
		createdAt time.Time
	}
	ranked := make([]usage, 0, len(c.entries))
	for key, entry := range c.entries {
		ranked = append(ranked, usage{key: key, count: entry.usageCount, createdAt: entry.createdAt})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count < ranked[j].count
		}
		return ranked[i].createdAt.Before(ranked[j].createdAt)
	})

	toEvict := len(c.entries) - c.capacity
	for _, candidate := range ranked[:toEvict] {
		delete(c.entries, candidate.key)
	}
	logger.Debugf("statement cache evicted %d statements over capacity", toEvict)
}

// Stats reports cache size, capacity and usage-derived hit statistics. A hit
// is any touch beyond an entry's initial insert.
func (c *StatementCache) Stats() StatementCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var totalTouches, totalHits int64
	for _, entry := range c.entries {
		totalTouches += entry.usageCount
		totalHits += entry.usageCount - 1
	}

	var hitRate float64
	if totalTouches > 0 {
		hitRate = float64(totalHits) / float64(totalTouches)
	}

	return StatementCacheStats{
		CacheSize:        len(c.entries),
		CacheCapacity:    c.capacity,
		TotalHits:        totalHits,
		EstimatedHitRate: hitRate,
	}
}

// Contains reports whether the query currently has a cache entry.
func (c *StatementCache) Contains(query string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[Fingerprint(query)]
	return ok
}

// Len returns the current entry count.
func (c *StatementCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
