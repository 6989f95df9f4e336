package dto

import "time"

// MetricsSnapshot is a JSON-friendly digest of the Prometheus collectors.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	DashboardRefreshes       uint64    `json:"dashboardRefreshes"`
	DashboardRefreshFailures uint64    `json:"dashboardRefreshFailures"`
	LastClassesAggregated    int64     `json:"lastClassesAggregated"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
