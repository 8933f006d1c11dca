package models

import "time"

// MetricsSnapshot is a point-in-time aggregation of the counters backing the
// Prometheus registry, suitable for a lightweight JSON status endpoint.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	SolveAttempts            uint64    `json:"solve_attempts"`
	SolveInfeasibleSearches  uint64    `json:"solve_infeasible_searches"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
