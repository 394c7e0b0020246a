// Package pool implements the adaptive connection pool subsystem: warm-up,
// validated acquire, cached query execution, health monitoring, advisory
// load-based sizing and statement cache maintenance.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"adaptivepool/internal/jobs"
	"adaptivepool/pkg/config"
	"adaptivepool/pkg/logger"
	"adaptivepool/pkg/provider"

	"go.uber.org/zap"
)

const (
	// warmupTimeout bounds the whole warm-up pass, not individual connections.
	warmupTimeout = 30 * time.Second

	// absoluteMaxConnections is the safety ceiling no scale-up advisory may exceed.
	absoluteMaxConnections = 200

	scalingEvalInterval  = 30 * time.Second
	cacheCleanupInterval = 5 * time.Minute

	decisionBufferSize = 16
)

// Pool is the single owning handle to the resource provider. All mutable
// monitoring state lives here; background jobs share it through the Pool,
// they hold no private copies.
type Pool struct {
	cfg      config.PoolConfig
	provider provider.Provider

	// Load metrics: many readers via Stats, one writer per update.
	metricsMu sync.RWMutex
	metrics   LoadMetrics

	healthMu sync.RWMutex
	health   HealthStatus

	cache *StatementCache

	scaleMu       sync.Mutex
	lastScaleTime time.Time

	// monitoring gates every background tick; clearing it stops the loops
	// cooperatively after their current run.
	monitoring atomic.Bool
	monMu      sync.Mutex
	jobManager *jobs.Manager

	decisions chan ScalingDecision
}

// New validates the configuration, verifies the provider is reachable and
// returns a pool ready for warm-up. A provider that cannot be reached is
// fatal: the error propagates to the caller.
func New(ctx context.Context, cfg config.PoolConfig, prov provider.Provider) (*Pool, error) {
	if cfg.MaxConnections < cfg.MinConnections {
		return nil, fmt.Errorf("max_connections %d must be >= min_connections %d",
			cfg.MaxConnections, cfg.MinConnections)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout())
	defer cancel()
	if err := prov.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("provider initialization failed: %w", err)
	}

	p := &Pool{
		cfg:      cfg,
		provider: prov,
		metrics: LoadMetrics{
			Timestamp: time.Now(),
		},
		health: HealthStatus{
			State:     HealthUnknown,
			IsHealthy: true,
			LastCheck: time.Now(),
		},
		cache:     NewStatementCache(cfg.StatementCacheCapacity),
		decisions: make(chan ScalingDecision, decisionBufferSize),
	}

	logger.Info("adaptive pool created",
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Int("min_connections", cfg.MinConnections),
		zap.Bool("dynamic_sizing", cfg.EnableDynamicSizing),
	)
	return p, nil
}

// WarmUp concurrently establishes the minimum connection count, running the
// configured warm-up queries on each. Individual failures are logged and do
// not abort the others; the pass as a whole is bounded by warmupTimeout.
func (p *Pool) WarmUp(ctx context.Context) WarmupReport {
	n := p.cfg.MinConnections
	report := WarmupReport{Attempted: n}
	if n <= 0 {
		return report
	}

	warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			results <- p.warmUpConnection(warmCtx, idx)
		}(i)
	}

	for i := 0; i < n; i++ {
		select {
		case err := <-results:
			if err != nil {
				report.Failed++
				logger.Warnf("connection warm-up failed: %v", err)
			} else {
				report.Succeeded++
			}
		case <-warmCtx.Done():
			report.Failed = n - report.Succeeded
			logger.Warn("pool warm-up timed out",
				zap.Int("succeeded", report.Succeeded),
				zap.Int("attempted", n),
			)
			return report
		}
	}

	logger.Infof("pool warm-up completed: %d/%d connections", report.Succeeded, n)
	return report
}

func (p *Pool) warmUpConnection(ctx context.Context, idx int) error {
	conn, err := p.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	for _, query := range p.cfg.ConnectionWarmupQueries {
		if err := p.provider.Execute(ctx, conn, query); err != nil {
			logger.Warnf("warm-up query failed on connection %d: %v", idx+1, err)
		}
	}

	p.metricsMu.Lock()
	p.metrics.ConnectionsCreated++
	p.metricsMu.Unlock()
	return nil
}

// Acquire checks a connection out of the provider, waiting at most the
// configured acquire timeout. When connection validation is enabled the
// validation query runs before the connection is handed to the caller.
func (p *Pool) Acquire(ctx context.Context) (provider.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout())
	defer cancel()

	p.metricsMu.Lock()
	p.metrics.PendingAcquires++
	p.metricsMu.Unlock()

	start := time.Now()
	conn, err := p.provider.Acquire(acquireCtx)
	elapsed := time.Since(start)

	p.metricsMu.Lock()
	p.metrics.PendingAcquires--
	p.metrics.TotalAcquires++
	if err != nil {
		p.metrics.FailedAcquires++
	}
	p.foldAcquireTimeLocked(elapsed)
	p.metricsMu.Unlock()

	if err != nil {
		return nil, err
	}

	if p.cfg.EnableConnectionValidation {
		if err := p.provider.Execute(acquireCtx, conn, p.cfg.ValidationQuery); err != nil {
			conn.Release()
			p.metricsMu.Lock()
			p.metrics.FailedAcquires++
			p.metricsMu.Unlock()
			return nil, fmt.Errorf("connection validation failed: %w", err)
		}
	}

	return conn, nil
}

// ExecuteCachedQuery runs a query through the pool. With prepared-statement
// caching enabled the query's cache entry is touched before execution.
func (p *Pool) ExecuteCachedQuery(ctx context.Context, query string) error {
	if p.cfg.EnablePreparedStatements {
		p.cache.Touch(query)
	}

	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := p.provider.Execute(ctx, conn, query); err != nil {
		p.metricsMu.Lock()
		p.metrics.FailedAcquires++
		p.metricsMu.Unlock()
		return fmt.Errorf("query execution failed: %w", err)
	}
	return nil
}

// foldAcquireTimeLocked folds one acquire duration into the running average.
// Callers must hold metricsMu.
func (p *Pool) foldAcquireTimeLocked(elapsed time.Duration) {
	sampleMs := float64(elapsed.Microseconds()) / 1000.0
	n := float64(p.metrics.TotalAcquires)
	if n <= 1 {
		p.metrics.AvgAcquireTimeMs = sampleMs
		return
	}
	p.metrics.AvgAcquireTimeMs += (sampleMs - p.metrics.AvgAcquireTimeMs) / n
}

// Stats recomputes utilization from the provider and returns a fresh load
// snapshot. Utilization is active/size, clamped to [0, 1].
func (p *Pool) Stats() LoadMetrics {
	size := p.provider.PoolSize()
	idle := p.provider.IdleCount()

	var utilization float64
	if size > 0 {
		active := size - idle
		utilization = float64(active) / float64(size)
		if utilization < 0 {
			utilization = 0
		}
		if utilization > 1 {
			utilization = 1
		}
	}

	p.metricsMu.Lock()
	p.metrics.UtilizationRate = utilization
	p.metrics.Timestamp = time.Now()
	snapshot := p.metrics
	p.metricsMu.Unlock()

	return snapshot
}

// HealthStatus returns a copy of the current health record.
func (p *Pool) HealthStatus() HealthStatus {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

// CacheStats returns current statement cache statistics.
func (p *Pool) CacheStats() StatementCacheStats {
	return p.cache.Stats()
}

// Decisions exposes the advisory scaling decision stream. Non-no_op
// decisions are also logged; consumers that fall behind lose the oldest
// buffered entries.
func (p *Pool) Decisions() <-chan ScalingDecision {
	return p.decisions
}

// Config returns the pool configuration.
func (p *Pool) Config() config.PoolConfig {
	return p.cfg
}

// Close stops monitoring and releases the provider.
func (p *Pool) Close() {
	p.StopMonitoring()
	p.provider.Close()
}
