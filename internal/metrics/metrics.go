// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GRPCServerHandlingSeconds is a histogram for gRPC server request latencies
	GRPCServerHandlingSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_server_handling_seconds",
			Help:    "Histogram of response latency (seconds) of gRPC that had been application-level handled by the server.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "code"},
	)

	// HTTPRequestSeconds is a histogram for HTTP request latencies
	HTTPRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latency (seconds) by route pattern and status.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"route", "method", "status"},
	)

	// MemberLatencySeconds is a histogram for a single ensemble member's forward pass
	MemberLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ensemble_member_latency_seconds",
			Help:    "Histogram of per-member inference latency (seconds), including resize.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"member"},
	)

	// StageLatencySeconds is a histogram of pipeline stage latencies
	StageLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_latency_seconds",
			Help:    "Histogram of classification pipeline stage latency (seconds).",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"stage"},
	)

	// PredictionsTotal counts successful classifications by category and label
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of classifications by category and predicted label.",
		},
		[]string{"category", "label"},
	)

	// PredictionErrorsTotal counts failed classifications by error kind
	PredictionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of failed classifications by error kind.",
		},
		[]string{"kind"},
	)

	// BundleLoadsTotal counts model bundle loads by category and outcome
	BundleLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundle_loads_total",
			Help: "Total number of model bundle loads by category and result.",
		},
		[]string{"category", "result"},
	)

	// ResultCacheTotal counts result cache lookups
	ResultCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_lookups_total",
			Help: "Total number of prediction result cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	// HealthStatus is a gauge indicating the health status of the service
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "health_status",
			Help: "Health status of the service (1 = healthy, 0 = unhealthy).",
		},
	)
)

// RecordGRPCLatency records the latency of a gRPC method call
func RecordGRPCLatency(method, code string, seconds float64) {
	GRPCServerHandlingSeconds.WithLabelValues(method, code).Observe(seconds)
}

// RecordHTTPLatency records the latency of an HTTP request
func RecordHTTPLatency(route, method, status string, seconds float64) {
	HTTPRequestSeconds.WithLabelValues(route, method, status).Observe(seconds)
}

// RecordMemberLatency records one ensemble member forward pass
func RecordMemberLatency(member string, seconds float64) {
	MemberLatencySeconds.WithLabelValues(member).Observe(seconds)
}

// RecordStageLatency records the latency of a pipeline stage
func RecordStageLatency(stage string, seconds float64) {
	StageLatencySeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordPrediction counts a successful classification
func RecordPrediction(category, label string) {
	PredictionsTotal.WithLabelValues(category, label).Inc()
}

// RecordPredictionError counts a failed classification
func RecordPredictionError(kind string) {
	PredictionErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordBundleLoad counts a bundle load attempt
func RecordBundleLoad(category string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	BundleLoadsTotal.WithLabelValues(category, result).Inc()
}

// RecordResultCache counts a result cache hit or miss
func RecordResultCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	ResultCacheTotal.WithLabelValues(outcome).Inc()
}

// SetHealthy sets the health status to healthy
func SetHealthy() {
	HealthStatus.Set(1)
}

// SetUnhealthy sets the health status to unhealthy
func SetUnhealthy() {
	HealthStatus.Set(0)
}
