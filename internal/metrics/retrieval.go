package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline metrics.
var (
	RetrievalPassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_passes_total",
			Help:      "Retrieval passes by strategy and first-pass quality",
		},
		[]string{"pass", "quality"},
	)

	RetrievalPassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_pass_duration_seconds",
			Help:      "End-to-end pass duration including intent extraction",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"pass"},
	)

	FilterEligibleCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "filter_eligible_candidates",
			Help:      "Number of events left after hard filtering",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	IndexedEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_events",
			Help:      "Number of events in the vector index",
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		RetrievalPassesTotal,
		RetrievalPassDuration,
		FilterEligibleCandidates,
		IndexedEvents,
	)
	retrievalMetricsRegistered = true
}
