package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoadAttemptsTotal tracks load attempts per route and outcome kind ("ok" on success)
	LoadAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routefleet_load_attempts_total",
			Help: "Total number of source load attempts",
		},
		[]string{"route", "kind"},
	)

	// LoadLatency tracks the duration of a single load attempt
	LoadLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routefleet_load_latency_seconds",
			Help:    "Source load attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// SourcesSettledTotal tracks sources reaching a terminal state
	SourcesSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routefleet_sources_settled_total",
			Help: "Total number of sources that reached a terminal state",
		},
		[]string{"state"},
	)

	// SourceAttempts tracks how many routes a source needed before settling
	SourceAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routefleet_source_attempts",
			Help:    "Attempts used per source",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 13},
		},
	)

	// FleetInFlight tracks sources currently being loaded
	FleetInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "routefleet_fleet_in_flight",
			Help: "Sources currently being loaded",
		},
	)

	// FleetRunDuration tracks the wall time of a fleet run
	FleetRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routefleet_fleet_run_duration_seconds",
			Help:    "Fleet run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)
