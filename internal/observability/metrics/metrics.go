package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rag"

// Metrics owns a private registry shared by the HTTP server, the query
// pipeline, ingestion and the resilience executor.
type Metrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal     *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	contextDocuments *prometheus.HistogramVec
	stageDuration    *prometheus.HistogramVec
	stageErrorsTotal *prometheus.CounterVec
	lexicalFallbacks *prometheus.CounterVec

	ingestPathsTotal  *prometheus.CounterVec
	ingestChunksTotal *prometheus.CounterVec

	retryAttemptsTotal *prometheus.CounterVec
	breakerTransitions *prometheus.CounterVec
}

func New(service string) *Metrics {
	m := &Metrics{
		service:  service,
		registry: prometheus.NewRegistry(),

		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"service", "method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "method", "path"},
		),
		requestInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "http",
				Name:        "in_flight_requests",
				Help:        "Number of in-flight HTTP requests.",
				ConstLabels: prometheus.Labels{"service": service},
			},
		),

		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "query",
				Name:      "total",
				Help:      "Answered questions by status.",
			},
			[]string{"service", "status"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "query",
				Name:      "duration_seconds",
				Help:      "End-to-end pipeline duration in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"service", "status"},
		),
		contextDocuments: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "query",
				Name:      "context_documents",
				Help:      "Documents handed to the generator per question.",
				Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12, 16},
			},
			[]string{"service"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "stage"},
		),
		stageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_errors_total",
				Help:      "Pipeline stage failures.",
			},
			[]string{"service", "stage"},
		),
		lexicalFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retrieval",
				Name:      "lexical_fallback_total",
				Help:      "Queries answered from the dense index alone, by reason.",
			},
			[]string{"service", "reason"},
		),

		ingestPathsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "paths_total",
				Help:      "Ingested paths by outcome.",
			},
			[]string{"service", "status"},
		),
		ingestChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "chunks_total",
				Help:      "Chunks produced by ingestion.",
			},
			[]string{"service"},
		),

		retryAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resilience",
				Name:      "retry_attempts_total",
				Help:      "Retries performed by the resilience executor.",
			},
			[]string{"service", "operation"},
		),
		breakerTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resilience",
				Name:      "breaker_transitions_total",
				Help:      "Circuit breaker state transitions by target state.",
			},
			[]string{"service", "operation", "state"},
		),
	}

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.queriesTotal,
		m.queryDuration,
		m.contextDocuments,
		m.stageDuration,
		m.stageErrorsTotal,
		m.lexicalFallbacks,
		m.ingestPathsTotal,
		m.ingestChunksTotal,
		m.retryAttemptsTotal,
		m.breakerTransitions,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
