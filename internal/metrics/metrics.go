// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

var (
	SearchEngineCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_search_engine_calls_total",
			Help: "Search engine adapter calls by engine and outcome",
		},
		[]string{"engine", "outcome"},
	)

	SearchDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pitch_search_degraded_total",
			Help: "Searches where every engine failed",
		},
	)

	SearchEngineDemoted = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pitch_search_engine_demoted",
			Help: "1 while an engine is demoted after consecutive failures",
		},
		[]string{"engine"},
	)

	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_generation_failures_total",
			Help: "Failed text generation calls by operation",
		},
		[]string{"operation"},
	)

	EmbeddingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pitch_embedding_failures_total",
			Help: "Embedding calls that failed; affected texts fall back to filter-only ranking",
		},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pitch_operation_duration_seconds",
			Help:    "Duration of pipeline operations",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"operation", "outcome"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	CorpusEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pitch_portfolio_entries",
			Help: "Portfolio entries loaded into the corpus",
		},
	)
)

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
