package pool

import (
	"context"
	"sync"
	"time"

	"adaptivepool/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// loadTestPacing is the per-worker sleep between iterations, keeping a
// single worker from saturating one connection in a tight loop.
const loadTestPacing = 10 * time.Millisecond

// LoadTester drives synthetic concurrent load through the pool's public
// surface for offline capacity planning. It has no privileged access.
type LoadTester struct {
	pool *Pool
}

// NewLoadTester creates a load tester over the given pool.
func NewLoadTester(p *Pool) *LoadTester {
	return &LoadTester{pool: p}
}

type workerResult struct {
	requests  int64
	errors    int64
	totalTime time.Duration
}

// Run spawns the requested number of workers, each looping
// acquire -> trivial query -> release until the duration elapses, and
// aggregates their counters into a report with the pool snapshot taken at
// completion.
func (lt *LoadTester) Run(ctx context.Context, concurrency int, duration time.Duration) LoadTestReport {
	testID := uuid.NewString()
	logger.Info("load test started",
		zap.String("test_id", testID),
		zap.Int("concurrency", concurrency),
		zap.Duration("duration", duration),
	)

	start := time.Now()
	deadline := start.Add(duration)
	query := lt.pool.cfg.ValidationQuery

	results := make([]workerResult, concurrency)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = lt.runWorker(ctx, deadline, query)
		}(i)
	}
	wg.Wait()

	var totalRequests, totalErrors int64
	var totalTime time.Duration
	for _, r := range results {
		totalRequests += r.requests
		totalErrors += r.errors
		totalTime += r.totalTime
	}

	actual := time.Since(start)
	report := LoadTestReport{
		TestID:        testID,
		Concurrency:   concurrency,
		DurationSecs:  actual.Seconds(),
		TotalRequests: totalRequests,
		TotalErrors:   totalErrors,
		PoolStats:     lt.pool.Stats(),
	}
	if totalRequests > 0 {
		report.ErrorRate = float64(totalErrors) / float64(totalRequests)
		report.AvgResponseTimeMs = float64(totalTime.Microseconds()) / 1000.0 / float64(totalRequests)
	}
	if actual > 0 {
		report.RequestsPerSecond = float64(totalRequests) / actual.Seconds()
	}

	logger.Info("load test completed",
		zap.String("test_id", testID),
		zap.Int64("total_requests", totalRequests),
		zap.Int64("total_errors", totalErrors),
		zap.Float64("error_rate", report.ErrorRate),
		zap.Float64("requests_per_second", report.RequestsPerSecond),
	)
	return report
}

func (lt *LoadTester) runWorker(ctx context.Context, deadline time.Time, query string) workerResult {
	var result workerResult

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return result
		default:
		}

		requestStart := time.Now()
		if err := lt.pool.ExecuteCachedQuery(ctx, query); err != nil {
			result.errors++
		} else {
			result.requests++
			result.totalTime += time.Since(requestStart)
		}

		select {
		case <-ctx.Done():
			return result
		case <-time.After(loadTestPacing):
		}
	}
	return result
}
