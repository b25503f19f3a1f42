package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts query-cache reads by cache kind and outcome (hit, miss, error, bypass).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediashelf_cache_lookups_total",
			Help: "Query cache lookups by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// CacheInvalidations counts scoped invalidations by kind and outcome.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediashelf_cache_invalidations_total",
			Help: "Scoped cache invalidations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// PendingInvalidations is the number of users whose invalidation is waiting for Redis to recover.
	PendingInvalidations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediashelf_cache_pending_invalidations",
			Help: "Users with invalidations queued until the cache backend recovers",
		},
	)

	// ResolverOutcomes counts catalog resolutions: existing, created, or recovered after a uniqueness race.
	ResolverOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediashelf_catalog_resolve_total",
			Help: "Catalog resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// TrackingEvents counts applied state machine events.
	TrackingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediashelf_tracking_events_total",
			Help: "Tracking events by event type and result",
		},
		[]string{"event", "result"},
	)

	// ProviderRequests counts external search provider calls.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediashelf_search_provider_requests_total",
			Help: "Search provider requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// HTTPRequestDuration tracks request latency by route and status class.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediashelf_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
