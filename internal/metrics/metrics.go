package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll cycle metrics
var (
	// CyclesTotal tracks completed poll cycles by outcome (committed/cancelled/failed)
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memepulse_cycles_total",
			Help: "Total poll cycles by outcome (committed/cancelled/failed)",
		},
		[]string{"outcome"},
	)

	// CycleDuration tracks poll cycle duration in seconds
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "memepulse_cycle_duration_seconds",
			Help:    "Poll cycle duration in seconds",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 90, 120},
		},
	)

	// ActiveTickers tracks the current number of tracked ticker records
	ActiveTickers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memepulse_active_tickers",
			Help: "Current number of tracked ticker records",
		},
	)

	// TickersEvictedTotal tracks ticker records removed after the inactivity window
	TickersEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memepulse_tickers_evicted_total",
			Help: "Ticker records evicted after the inactivity window",
		},
	)
)

// Ingestion metrics
var (
	// PostsProcessedTotal tracks posts accepted into extraction
	PostsProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memepulse_posts_processed_total",
			Help: "Posts accepted into ticker extraction",
		},
	)

	// PostsSkippedTotal tracks posts skipped by reason (low_karma/parse_error)
	PostsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memepulse_posts_skipped_total",
			Help: "Posts skipped by reason (low_karma/parse_error)",
		},
		[]string{"reason"},
	)
)

// Fetch cache metrics
var (
	// FetchesTotal tracks upstream fetch attempts by source and result
	// (hit/miss/stale/error/suspended)
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memepulse_fetches_total",
			Help: "Fetch cache lookups by source and result (hit/miss/stale/error/suspended)",
		},
		[]string{"source", "result"},
	)

	// FetchDuration tracks upstream fetch latency in seconds by source
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memepulse_fetch_duration_seconds",
			Help:    "Upstream fetch duration in seconds by source",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30},
		},
		[]string{"source"},
	)

	// SourceCooldownSeconds tracks the current back-off window per source
	SourceCooldownSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "memepulse_source_cooldown_seconds",
			Help: "Current exponential back-off window per source in seconds",
		},
		[]string{"source"},
	)
)

// Classification metrics
var (
	// StageTransitionsTotal tracks lifecycle stage transitions
	StageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memepulse_stage_transitions_total",
			Help: "Lifecycle stage transitions by from/to stage",
		},
		[]string{"from", "to"},
	)
)

// Publishing metrics
var (
	// PublishFailuresTotal tracks failed snapshot publishes
	PublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memepulse_publish_failures_total",
			Help: "Failed cycle snapshot publishes",
		},
	)

	// BreakerStateChanges tracks publisher circuit breaker state transitions
	BreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memepulse_breaker_state_changes_total",
			Help: "Publisher circuit breaker state transitions by new state",
		},
		[]string{"state"},
	)
)
