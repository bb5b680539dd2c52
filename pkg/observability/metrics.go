// Package observability exposes Prometheus metrics for the query pipeline.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopquery_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopquery_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	pipelineStageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopquery_pipeline_stage_total",
			Help: "Pipeline stage outcomes (ok, rejected, error).",
		},
		[]string{"stage", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds, pipelineStageTotal)
}

// RecordPipelineStage counts one stage outcome.
func RecordPipelineStage(stage, outcome string) {
	pipelineStageTotal.WithLabelValues(stage, outcome).Inc()
}
