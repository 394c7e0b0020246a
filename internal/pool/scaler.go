package pool

import (
	"context"
	"math"
	"time"

	"adaptivepool/pkg/logger"

	"go.uber.org/zap"
)

// scalingJob evaluates pool utilization on every tick and emits advisory
// sizing decisions. The high/low threshold pair plus the cooldown form a
// hysteresis controller, keeping noisy utilization samples from flapping
// the advice between scale-up and scale-down.
type scalingJob struct {
	pool *Pool
}

func (j *scalingJob) Name() string { return "scaling-advisor" }

func (j *scalingJob) Interval() time.Duration { return scalingEvalInterval }

func (j *scalingJob) Run(ctx context.Context) error {
	if !j.pool.monitoring.Load() {
		return nil
	}
	decision := j.pool.evaluateScaling(time.Now())
	j.pool.emitDecision(decision)
	return nil
}

// evaluateScaling computes one advisory decision from current utilization.
// Non-no_op decisions update lastScaleTime even though nothing resizes the
// provider; the cooldown applies to the advice stream itself.
func (p *Pool) evaluateScaling(now time.Time) ScalingDecision {
	utilization := p.Stats().UtilizationRate

	decision := ScalingDecision{
		Action:      ScaleNoOp,
		Utilization: utilization,
		Timestamp:   now,
	}

	p.scaleMu.Lock()
	defer p.scaleMu.Unlock()

	cooldownActive := !p.lastScaleTime.IsZero() &&
		now.Sub(p.lastScaleTime) < p.cfg.MinScaleInterval()

	currentMax := p.cfg.MaxConnections
	currentMin := p.cfg.MinConnections

	switch {
	case utilization > p.cfg.LoadThresholdHigh && !cooldownActive:
		newMax := int(math.Ceil(float64(currentMax) * p.cfg.ScaleUpFactor))
		if newMax > absoluteMaxConnections {
			newMax = absoluteMaxConnections
		}
		if newMax > currentMax {
			decision.Action = ScaleUp
			decision.NewMax = newMax
			p.lastScaleTime = now
		}
	case utilization < p.cfg.LoadThresholdLow && !cooldownActive:
		newMax := int(math.Floor(float64(currentMax) * p.cfg.ScaleDownFactor))
		if newMax >= currentMin && newMax < currentMax {
			decision.Action = ScaleDown
			decision.NewMax = newMax
			p.lastScaleTime = now
		}
	}

	return decision
}

// emitDecision logs the decision and pushes it onto the advisory channel,
// dropping the oldest buffered entry when no consumer keeps up.
func (p *Pool) emitDecision(decision ScalingDecision) {
	switch decision.Action {
	case ScaleNoOp:
		logger.Debug("scaling evaluation: no action",
			zap.Float64("utilization", decision.Utilization),
		)
	default:
		logger.Info("scaling advisory",
			zap.String("action", string(decision.Action)),
			zap.Int("new_max", decision.NewMax),
			zap.Float64("utilization", decision.Utilization),
		)
	}

	select {
	case p.decisions <- decision:
	default:
		select {
		case <-p.decisions:
		default:
		}
		select {
		case p.decisions <- decision:
		default:
		}
	}
}
