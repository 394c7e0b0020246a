package pool

import (
	"context"
	"time"

	"adaptivepool/internal/jobs"
	"adaptivepool/pkg/logger"
)

// cacheCleanupJob trims the statement cache on a slower cadence than the
// health and scaling loops.
type cacheCleanupJob struct {
	pool *Pool
}

func (j *cacheCleanupJob) Name() string { return "statement-cache-cleanup" }

func (j *cacheCleanupJob) Interval() time.Duration { return cacheCleanupInterval }

func (j *cacheCleanupJob) Run(ctx context.Context) error {
	if !j.pool.monitoring.Load() {
		return nil
	}
	j.pool.cache.Cleanup()
	return nil
}

// StartMonitoring launches the health check, scaling advisor and statement
// cache cleanup loops. Calling it while monitoring is already running is a
// no-op.
func (p *Pool) StartMonitoring(ctx context.Context) {
	if p.monitoring.Swap(true) {
		return
	}

	manager := jobs.NewManager(ctx)
	manager.Register(&healthCheckJob{pool: p})
	if p.cfg.EnableDynamicSizing {
		manager.Register(&scalingJob{pool: p})
	}
	manager.Register(&cacheCleanupJob{pool: p})
	manager.Start()

	p.monMu.Lock()
	p.jobManager = manager
	p.monMu.Unlock()
	logger.Info("pool monitoring started")
}

// StopMonitoring clears the monitoring flag and cancels the background
// loops. The stop is cooperative: a tick already in flight finishes before
// its loop exits.
func (p *Pool) StopMonitoring() {
	if !p.monitoring.Swap(false) {
		return
	}
	p.monMu.Lock()
	manager := p.jobManager
	p.jobManager = nil
	p.monMu.Unlock()

	if manager != nil {
		manager.Stop()
		manager.Wait()
	}
	logger.Info("pool monitoring stopped")
}
