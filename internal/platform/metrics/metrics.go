// Package metrics defines the Prometheus collectors exposed on /metrics.
// Collectors are registered on the default registry at package init and
// updated directly by the owning components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerState tracks the current state of each circuit breaker
	// (0=closed, 1=open, 2=half-open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediakit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"breaker"},
	)

	// BreakerRejectionsTotal counts calls rejected while a breaker was open.
	BreakerRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediakit_breaker_rejections_total",
			Help: "Total calls rejected by an open circuit breaker",
		},
		[]string{"breaker"},
	)

	// PoolResources tracks per-pool resource counts by status (active/idle).
	PoolResources = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediakit_pool_resources",
			Help: "Current pooled resources by status",
		},
		[]string{"pool", "status"},
	)

	// PoolAcquireTimeoutsTotal counts acquisitions that timed out.
	PoolAcquireTimeoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediakit_pool_acquire_timeouts_total",
			Help: "Total pool acquisitions that timed out",
		},
		[]string{"pool"},
	)

	// CacheLookupsTotal counts cache lookups by result (hit/miss).
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediakit_cache_lookups_total",
			Help: "Total TTL cache lookups by result",
		},
		[]string{"cache", "result"},
	)

	// QueueDepth tracks the number of jobs waiting in each task queue.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediakit_queue_depth",
			Help: "Current number of queued jobs",
		},
		[]string{"queue"},
	)

	// JobsProcessedTotal counts finished jobs by result (succeeded/failed).
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediakit_jobs_processed_total",
			Help: "Total background jobs processed by result",
		},
		[]string{"queue", "result"},
	)

	// HTTPRequestDuration tracks request latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediakit_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
