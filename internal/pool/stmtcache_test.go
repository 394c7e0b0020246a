package pool

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFingerprintNormalizesWhitespace(t *testing.T) {
	require.Equal(t,
		Fingerprint("SELECT *   FROM positions\n WHERE id = $1"),
		Fingerprint("SELECT * FROM positions WHERE id = $1"),
	)
	require.NotEqual(t,
		Fingerprint("SELECT * FROM positions"),
		Fingerprint("SELECT * FROM pools"),
	)
}

func TestTouchInsertsAndIncrements(t *testing.T) {
	cache := NewStatementCache(10)

	cache.Touch("SELECT 1")
	cache.Touch("SELECT 1")
	cache.Touch("SELECT 2")

	stats := cache.Stats()
	require.Equal(t, 2, stats.CacheSize)
	require.Equal(t, int64(1), stats.TotalHits)
	require.InDelta(t, 1.0/3.0, stats.EstimatedHitRate, 1e-9)
}

func TestTouchSkipsSilentlyWhenFull(t *testing.T) {
	cache := NewStatementCache(3)

	for i := 0; i < 4; i++ {
		cache.Touch(fmt.Sprintf("SELECT %d", i))
	}

	require.Equal(t, 3, cache.Len())
	require.False(t, cache.Contains("SELECT 3"))

	// Cleanup keeps the size invariant: never above capacity afterwards.
	cache.Cleanup()
	require.Equal(t, 3, cache.Len())
	require.LessOrEqual(t, cache.Len(), cache.Stats().CacheCapacity)
}

func TestCleanupDropsAgedNeverReusedEntries(t *testing.T) {
	cache := NewStatementCache(10)
	now := time.Now()
	old := now.Add(-2 * statementMaxAge)

	cache.touchAt("SELECT stale", old)
	cache.touchAt("SELECT reused", old)
	cache.touchAt("SELECT reused", old) // reuse keeps it alive
	cache.touchAt("SELECT fresh", now)

	cache.cleanupAt(now)

	require.False(t, cache.Contains("SELECT stale"))
	require.True(t, cache.Contains("SELECT reused"))
	require.True(t, cache.Contains("SELECT fresh"))
}

func TestCleanupEvictsLeastUsedOverCapacity(t *testing.T) {
	cache := NewStatementCache(2)
	now := time.Now()

	// Force an over-capacity state the way a capacity shrink would, then
	// verify cleanup evicts by ascending usage.
	cache.entries = map[string]*statementEntry{
		Fingerprint("q1"): {query: "q1", createdAt: now, usageCount: 5},
		Fingerprint("q2"): {query: "q2", createdAt: now, usageCount: 1},
		Fingerprint("q3"): {query: "q3", createdAt: now, usageCount: 3},
		Fingerprint("q4"): {query: "q4", createdAt: now, usageCount: 2},
	}

	cache.cleanupAt(now)

	require.Equal(t, 2, cache.Len())
	require.True(t, cache.Contains("q1"))
	require.True(t, cache.Contains("q3"))
	require.False(t, cache.Contains("q2"))
	require.False(t, cache.Contains("q4"))
}

func TestCleanupEvictionTieBreaksOnAge(t *testing.T) {
	cache := NewStatementCache(1)
	now := time.Now()

	cache.entries = map[string]*statementEntry{
		Fingerprint("older"): {query: "older", createdAt: now.Add(-time.Minute), usageCount: 1},
		Fingerprint("newer"): {query: "newer", createdAt: now, usageCount: 1},
	}

	cache.cleanupAt(now)

	require.Equal(t, 1, cache.Len())
	require.True(t, cache.Contains("newer"))
	require.False(t, cache.Contains("older"))
}

func TestStatsOnEmptyCache(t *testing.T) {
	cache := NewStatementCache(5)
	stats := cache.Stats()

	require.Equal(t, 0, stats.CacheSize)
	require.Equal(t, 5, stats.CacheCapacity)
	require.Equal(t, int64(0), stats.TotalHits)
	require.Equal(t, 0.0, stats.EstimatedHitRate)
}
