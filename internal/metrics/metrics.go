package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the shorten and resolve counters.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

var (
	// Prometheus panics on duplicate registration.
	once sync.Once

	// ShortenTotal counts Shorten calls by outcome.
	ShortenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_shorten_total",
			Help: "Number of shorten operations by outcome.",
		},
		[]string{"outcome"},
	)

	// ResolveTotal counts Resolve calls by outcome.
	ResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_resolve_total",
			Help: "Number of resolve operations by outcome.",
		},
		[]string{"outcome"},
	)

	// StoreUp follows the result of the latest PING: 1 if Redis answered,
	// 0 if it failed or the store is closed.
	StoreUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shortener_store_up",
			Help: "Whether the last Redis PING succeeded (1) or not (0).",
		},
	)

	// HTTPRequestDurationSeconds records request latency by route template.
	// Route templates, not raw paths, keep label cardinality bounded.
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			ShortenTotal,
			ResolveTotal,
			StoreUp,
			HTTPRequestDurationSeconds,
		)
	})
}
