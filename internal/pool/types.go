package pool

import "time"

// LoadMetrics is a snapshot of the pool's load counters. UtilizationRate is
// always within [0, 1].
type LoadMetrics struct {
	UtilizationRate    float64   `json:"utilization_rate"`
	AvgAcquireTimeMs   float64   `json:"avg_acquire_time_ms"`
	PendingAcquires    int64     `json:"pending_acquires"`
	TotalAcquires      int64     `json:"total_acquires"`
	FailedAcquires     int64     `json:"failed_acquires"`
	ConnectionsCreated int64     `json:"connections_created"`
	ConnectionsClosed  int64     `json:"connections_closed"`
	Timestamp          time.Time `json:"timestamp"`
}

// HealthState is the health monitor's state machine position.
type HealthState string

const (
	HealthUnknown   HealthState = "unknown"
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
)

// HealthStatus records the outcome of periodic validation probes.
//
// SuccessRate is derived from all-time counters, not a sliding window: a
// pool that was unhealthy long ago keeps a depressed rate after recovering.
type HealthStatus struct {
	State               HealthState `json:"state"`
	IsHealthy           bool        `json:"is_healthy"`
	LastCheck           time.Time   `json:"last_check"`
	ResponseTimeMs      int64       `json:"response_time_ms"`
	ConsecutiveFailures int         `json:"consecutive_failures"`
	TotalChecks         int64       `json:"total_checks"`
	SuccessRate         float64     `json:"success_rate"`
}

// StatementCacheStats summarizes statement cache usage.
type StatementCacheStats struct {
	CacheSize        int     `json:"cache_size"`
	CacheCapacity    int     `json:"cache_capacity"`
	TotalHits        int64   `json:"total_hits"`
	EstimatedHitRate float64 `json:"estimated_hit_rate"`
}

// ScalingAction is the advisor's proposed action.
type ScalingAction string

const (
	ScaleNoOp ScalingAction = "no_op"
	ScaleUp   ScalingAction = "scale_up"
	ScaleDown ScalingAction = "scale_down"
)

// ScalingDecision is an advisory sizing proposal. Decisions never mutate the
// provider; applying one means constructing a new pool with the proposed
// maximum and cutting over.
type ScalingDecision struct {
	Action      ScalingAction `json:"action"`
	NewMax      int           `json:"new_max,omitempty"`
	Utilization float64       `json:"utilization"`
	Timestamp   time.Time     `json:"timestamp"`
}

// WarmupReport counts the outcome of the startup warm-up pass.
type WarmupReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// LoadTestReport aggregates the counters of a synthetic load run.
type LoadTestReport struct {
	TestID            string      `json:"test_id"`
	Concurrency       int         `json:"concurrency"`
	DurationSecs      float64     `json:"duration_secs"`
	TotalRequests     int64       `json:"total_requests"`
	TotalErrors       int64       `json:"total_errors"`
	ErrorRate         float64     `json:"error_rate"`
	AvgResponseTimeMs float64     `json:"avg_response_time_ms"`
	RequestsPerSecond float64     `json:"requests_per_second"`
	PoolStats         LoadMetrics `json:"pool_stats"`
}

// Snapshot combines load, health and cache statistics for observability
// consumers.
type Snapshot struct {
	Load      LoadMetrics         `json:"load"`
	Health    HealthStatus        `json:"health"`
	Cache     StatementCacheStats `json:"cache"`
	Timestamp time.Time           `json:"timestamp"`
}
