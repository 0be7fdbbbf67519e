package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// HTTPRequestsTotal counts API requests by method, endpoint and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled, labeled by method, endpoint and status.",
	}, []string{"method", "endpoint", "status"})

	// HTTPRequestDurationSeconds is per-request latency measured in the middleware.
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cropadvisor",
		Subsystem: "api",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by endpoint.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"endpoint"})

	// InferenceAttemptsTotal counts inference attempts by model and outcome.
	InferenceAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "inference",
		Name:      "attempts_total",
		Help:      "Total number of inference attempts, labeled by model and result.",
	}, []string{"model", "result"})

	// InferenceFallbacksTotal counts final attempts that switched to the fallback model.
	InferenceFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "inference",
		Name:      "fallbacks_total",
		Help:      "Total number of inference calls that fell back to the secondary model.",
	})

	// InferenceDurationSeconds is time per successful inference call.
	InferenceDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cropadvisor",
		Subsystem: "inference",
		Name:      "duration_seconds",
		Help:      "End-to-end time of an inference call including retries.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90, 180},
	}, []string{"model"})

	// APIKeyUsageTotal counts authorized requests per partner and endpoint.
	APIKeyUsageTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "api",
		Name:      "api_key_usage_total",
		Help:      "Total number of authorized requests per partner and endpoint.",
	}, []string{"partner", "endpoint"})

	// ActiveAPIKeys is the number of currently active partner keys.
	ActiveAPIKeys = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cropadvisor",
		Subsystem: "api",
		Name:      "active_api_keys",
		Help:      "Number of active partner API keys.",
	})

	// CacheOpsTotal counts result-cache operations by outcome (hit, miss, error, skip).
	CacheOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "cache",
		Name:      "ops_total",
		Help:      "Total number of result cache lookups, labeled by outcome.",
	}, []string{"outcome"})

	// AnalysesTotal counts completed analyses by type and plant status.
	AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "pipeline",
		Name:      "analyses_total",
		Help:      "Total number of completed analyses, labeled by analysis type and outcome.",
	}, []string{"type", "outcome"})

	// EventPublishErrorTotal counts failed broker publishes.
	EventPublishErrorTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "pipeline",
		Name:      "event_publish_error_total",
		Help:      "Total number of analysis event publish failures.",
	})

	// RabbitMQConnected is 1 when the publisher considers itself connected.
	RabbitMQConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cropadvisor",
		Subsystem: "pipeline",
		Name:      "rabbitmq_connected",
		Help:      "Whether the analysis event publisher is currently connected (best-effort).",
	})
)

// Register registers pipeline metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			InferenceAttemptsTotal,
			InferenceFallbacksTotal,
			InferenceDurationSeconds,
			APIKeyUsageTotal,
			ActiveAPIKeys,
			CacheOpsTotal,
			AnalysesTotal,
			EventPublishErrorTotal,
			RabbitMQConnected,
		)
	})
}
