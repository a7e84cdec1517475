// Package metrics exposes the engine's prometheus instruments. Collectors
// are process-global and safe for concurrent use.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequests counts provider fetches by provider name and outcome.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "squeezerun",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Provider fetch attempts by provider and outcome (ok|absent|error).",
	}, []string{"provider", "outcome"})

	// ProviderLatency observes provider fetch latency.
	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "squeezerun",
		Subsystem: "provider",
		Name:      "latency_seconds",
		Help:      "Provider fetch latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	// CacheLookups counts TTL cache lookups by cache name and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "squeezerun",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "TTL cache lookups by cache and result (hit|miss|coalesced).",
	}, []string{"cache", "result"})

	// RunDuration observes end-to-end discovery run duration.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "squeezerun",
		Subsystem: "engine",
		Name:      "run_duration_seconds",
		Help:      "End-to-end discovery run duration.",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60},
	})

	// Candidates counts candidates emitted per action.
	Candidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "squeezerun",
		Subsystem: "engine",
		Name:      "candidates_total",
		Help:      "Candidates emitted by action.",
	}, []string{"action"})

	// ColdTapeActive reports whether the cold-tape regime is active.
	ColdTapeActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "squeezerun",
		Subsystem: "engine",
		Name:      "cold_tape_active",
		Help:      "1 while the cold-tape relaxation regime is active.",
	})
)
