package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chronicle"

var (
	// HTTPRequestsTotal counts served requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// GenerationsTotal counts diary generations by kind (create, refine) and outcome.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of diary generations",
		},
		[]string{"kind", "status"},
	)

	// LLMDuration measures provider round trips.
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_duration_seconds",
			Help:      "Duration of LLM calls in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"provider"},
	)
)

// RecordGeneration records the outcome of one diary generation.
func RecordGeneration(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	GenerationsTotal.WithLabelValues(kind, status).Inc()
}

// RecordLLMCall records the latency of one provider call.
func RecordLLMCall(provider string, seconds float64) {
	LLMDuration.WithLabelValues(provider).Observe(seconds)
}
