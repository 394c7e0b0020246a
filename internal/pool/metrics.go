package pool

import "time"

// Snapshot combines the current load metrics, health record and statement
// cache statistics into one read-only view. It performs no mutation beyond
// the utilization refresh Stats always does.
func (p *Pool) Snapshot() Snapshot {
	return Snapshot{
		Load:      p.Stats(),
		Health:    p.HealthStatus(),
		Cache:     p.CacheStats(),
		Timestamp: time.Now(),
	}
}
