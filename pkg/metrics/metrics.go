// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kakapo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kakapo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ModelAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kakapo_model_resolve_attempts_total",
			Help: "Model probes during fallback resolution, by outcome",
		},
		[]string{"model", "outcome"},
	)

	InferenceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "kakapo_inference_latency_seconds",
			Help: "Model generation latency in seconds",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kakapo_answer_cache_lookups_total",
			Help: "Answer cache lookups, by result",
		},
		[]string{"result"},
	)

	EncyclopediaLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kakapo_encyclopedia_lookups_total",
			Help: "Encyclopedia lookups, by outcome",
		},
		[]string{"outcome"},
	)
)
