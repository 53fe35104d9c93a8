// Package metrics exposes Prometheus collectors for the query pipeline and
// the HTTP layer.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ksato/raggate/internal/service"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "raggate",
			Name:      "queries_total",
			Help:      "Total number of processed queries",
		},
		[]string{"cached", "gated"},
	)

	queryLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "raggate",
			Name:      "query_latency_seconds",
			Help:      "End-to-end query processing latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	resultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "raggate",
			Name:      "results_returned",
			Help:      "Curated results returned per query",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)
)

func init() {
	prometheus.MustRegister(queriesTotal)
	prometheus.MustRegister(queryLatency)
	prometheus.MustRegister(resultsReturned)
}

// QueryRecorder implements service.Recorder by updating Prometheus counters.
type QueryRecorder struct{}

// NewQueryRecorder creates a Prometheus-backed usage recorder.
func NewQueryRecorder() *QueryRecorder {
	return &QueryRecorder{}
}

// Record updates the query counters from a usage event.
func (QueryRecorder) Record(_ context.Context, ev service.QueryEvent) {
	queriesTotal.WithLabelValues(boolLabel(ev.CacheHit), boolLabel(ev.Gated)).Inc()
	queryLatency.Observe(float64(ev.LatencyMS) / 1000)
	resultsReturned.Observe(float64(ev.ResultCount))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Ensure QueryRecorder implements service.Recorder.
var _ service.Recorder = (*QueryRecorder)(nil)
