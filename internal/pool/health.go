package pool

import (
	"context"
	"time"

	"adaptivepool/pkg/logger"

	"go.uber.org/zap"
)

// healthCheckJob probes the pool with the validation query on every tick and
// drives the Unknown -> Healthy/Unhealthy state machine.
type healthCheckJob struct {
	pool *Pool
}

func (j *healthCheckJob) Name() string { return "health-check" }

func (j *healthCheckJob) Interval() time.Duration {
	return j.pool.cfg.HealthCheckInterval()
}

func (j *healthCheckJob) Run(ctx context.Context) error {
	if !j.pool.monitoring.Load() {
		return nil
	}
	j.pool.performHealthCheck(ctx)
	return nil
}

// performHealthCheck runs one validation probe under the health check
// timeout and updates the health record. Probe failures are absorbed into
// the record, never surfaced to callers.
func (p *Pool) performHealthCheck(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.HealthCheckTimeout())
	defer cancel()

	start := time.Now()
	err := p.runValidationProbe(probeCtx)
	responseTime := time.Since(start)

	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.TotalChecks++
	p.health.ResponseTimeMs = responseTime.Milliseconds()
	p.health.LastCheck = time.Now()

	if err == nil {
		p.health.ConsecutiveFailures = 0
		p.health.State = HealthHealthy
		p.health.IsHealthy = true
		logger.Debugf("health check passed in %dms", p.health.ResponseTimeMs)
	} else {
		p.health.ConsecutiveFailures++
		if p.health.ConsecutiveFailures >= p.cfg.MaxFailedHealthChecks {
			p.health.State = HealthUnhealthy
			p.health.IsHealthy = false
			logger.Error("pool marked unhealthy",
				zap.Int("consecutive_failures", p.health.ConsecutiveFailures),
			)
		} else {
			logger.Warnf("health check failed: %v", err)
		}
	}

	// All-time estimate, not a sliding window: an old failure streak keeps
	// depressing the rate after recovery.
	p.health.SuccessRate = float64(p.health.TotalChecks-int64(p.health.ConsecutiveFailures)) /
		float64(p.health.TotalChecks)
}

func (p *Pool) runValidationProbe(ctx context.Context) error {
	conn, err := p.provider.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return p.provider.Execute(ctx, conn, p.cfg.ValidationQuery)
}
