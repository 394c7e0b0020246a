package pool

import (
	"context"
	"errors"
	"testing"

	"adaptivepool/pkg/config"
	"adaptivepool/pkg/provider"

	"github.com/stretchr/testify/require"
)

func testPoolConfig() config.PoolConfig {
	cfg := config.DefaultPoolConfig()
	cfg.MaxConnections = 10
	cfg.MinConnections = 2
	cfg.AcquireTimeoutSecs = 1
	cfg.HealthCheckTimeoutSecs = 1
	cfg.ConnectionWarmupQueries = []string{"SET a 1", "SET b 2"}
	return cfg
}

func newTestPool(t *testing.T, cfg config.PoolConfig, prov *fakeProvider) *Pool {
	t.Helper()
	p, err := New(context.Background(), cfg, prov)
	require.NoError(t, err)
	return p
}

func TestNewRejectsMaxBelowMin(t *testing.T) {
	cfg := testPoolConfig()
	cfg.MaxConnections = 5
	cfg.MinConnections = 10

	_, err := New(context.Background(), cfg, newFakeProvider())
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_connections")
}

func TestNewFailsWhenProviderUnreachable(t *testing.T) {
	prov := newFakeProvider()
	prov.pingErr = errors.New("connection refused")

	_, err := New(context.Background(), testPoolConfig(), prov)
	require.Error(t, err)
	require.Contains(t, err.Error(), "provider initialization failed")
}

func TestWarmUpSpawnsMinConnectionsTasks(t *testing.T) {
	cfg := testPoolConfig()
	cfg.MinConnections = 20
	cfg.MaxConnections = 40
	prov := newFakeProvider()
	p := newTestPool(t, cfg, prov)

	report := p.WarmUp(context.Background())

	require.Equal(t, 20, report.Attempted)
	require.Equal(t, 20, report.Succeeded)
	require.Equal(t, 0, report.Failed)
	require.Equal(t, 20, prov.acquireCount())
	// Two warm-up queries per connection.
	require.Len(t, prov.executedQueries(), 40)
	require.Equal(t, int64(20), p.Stats().ConnectionsCreated)
}

func TestWarmUpPartialFailureDoesNotAbort(t *testing.T) {
	cfg := testPoolConfig()
	cfg.MinConnections = 20
	cfg.MaxConnections = 40
	prov := newFakeProvider()
	prov.failNextAcquires = 2
	p := newTestPool(t, cfg, prov)

	report := p.WarmUp(context.Background())

	require.Equal(t, 18, report.Succeeded)
	require.Equal(t, 2, report.Failed)

	// The pool still serves traffic after a partial warm-up.
	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn.Release()
}

func TestAcquireSurfacesTimeout(t *testing.T) {
	prov := newFakeProvider()
	prov.failNextAcquires = 1
	p := newTestPool(t, testPoolConfig(), prov)

	_, err := p.Acquire(context.Background())
	require.ErrorIs(t, err, provider.ErrAcquireTimeout)

	stats := p.Stats()
	require.Equal(t, int64(1), stats.TotalAcquires)
	require.Equal(t, int64(1), stats.FailedAcquires)
}

func TestAcquireValidatesConnection(t *testing.T) {
	cfg := testPoolConfig()
	cfg.EnableConnectionValidation = true
	prov := newFakeProvider()
	prov.execErrFor[cfg.ValidationQuery] = errors.New("connection is broken")
	p := newTestPool(t, cfg, prov)

	_, err := p.Acquire(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection validation failed")
	// The failed connection goes back to the provider, not to the caller.
	require.True(t, prov.lastConn.isReleased())
}

func TestAcquireSkipsValidationWhenDisabled(t *testing.T) {
	cfg := testPoolConfig()
	cfg.EnableConnectionValidation = false
	prov := newFakeProvider()
	prov.execErrFor[cfg.ValidationQuery] = errors.New("connection is broken")
	p := newTestPool(t, cfg, prov)

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn.Release()
	require.Empty(t, prov.executedQueries())
}

func TestExecuteCachedQueryTouchesCache(t *testing.T) {
	cfg := testPoolConfig()
	cfg.EnableConnectionValidation = false
	prov := newFakeProvider()
	p := newTestPool(t, cfg, prov)

	require.NoError(t, p.ExecuteCachedQuery(context.Background(), "SELECT * FROM positions"))
	require.NoError(t, p.ExecuteCachedQuery(context.Background(), "SELECT * FROM positions"))

	stats := p.CacheStats()
	require.Equal(t, 1, stats.CacheSize)
	require.Equal(t, int64(1), stats.TotalHits)

	load := p.Stats()
	require.Equal(t, int64(2), load.TotalAcquires)
	require.Equal(t, int64(0), load.FailedAcquires)
}

func TestExecuteCachedQueryBypassesCacheWhenDisabled(t *testing.T) {
	cfg := testPoolConfig()
	cfg.EnableConnectionValidation = false
	cfg.EnablePreparedStatements = false
	prov := newFakeProvider()
	p := newTestPool(t, cfg, prov)

	require.NoError(t, p.ExecuteCachedQuery(context.Background(), "SELECT 1"))
	require.Equal(t, 0, p.CacheStats().CacheSize)
}

func TestExecuteCachedQueryCountsFailures(t *testing.T) {
	cfg := testPoolConfig()
	cfg.EnableConnectionValidation = false
	prov := newFakeProvider()
	prov.execErr = errors.New("table does not exist")
	p := newTestPool(t, cfg, prov)

	require.Error(t, p.ExecuteCachedQuery(context.Background(), "SELECT * FROM missing"))
	require.Equal(t, int64(1), p.Stats().FailedAcquires)
}

func TestStatsUtilizationStaysInRange(t *testing.T) {
	prov := newFakeProvider()
	p := newTestPool(t, testPoolConfig(), prov)

	cases := []struct {
		size, idle int
		want       float64
	}{
		{size: 10, idle: 3, want: 0.7},
		{size: 10, idle: 10, want: 0},
		{size: 10, idle: 0, want: 1},
		{size: 0, idle: 0, want: 0},
		// Idle above size must clamp rather than go negative.
		{size: 5, idle: 8, want: 0},
	}
	for _, tc := range cases {
		prov.setLoad(tc.size, tc.idle)
		got := p.Stats().UtilizationRate
		require.InDelta(t, tc.want, got, 1e-9)
		require.GreaterOrEqual(t, got, 0.0)
		require.LessOrEqual(t, got, 1.0)
	}
}

func TestSnapshotCombinesAllSources(t *testing.T) {
	prov := newFakeProvider()
	prov.setLoad(10, 5)
	cfg := testPoolConfig()
	cfg.EnableConnectionValidation = false
	p := newTestPool(t, cfg, prov)

	require.NoError(t, p.ExecuteCachedQuery(context.Background(), "SELECT 1"))
	p.performHealthCheck(context.Background())

	snap := p.Snapshot()
	require.InDelta(t, 0.5, snap.Load.UtilizationRate, 1e-9)
	require.Equal(t, HealthHealthy, snap.Health.State)
	require.Equal(t, 1, snap.Cache.CacheSize)
	require.False(t, snap.Timestamp.IsZero())
}

func TestCloseReleasesProvider(t *testing.T) {
	prov := newFakeProvider()
	p := newTestPool(t, testPoolConfig(), prov)

	p.Close()
	require.True(t, prov.closed)
}
