package metrics

import (
	"time"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

func (m *Metrics) ObserveStage(stage string, duration time.Duration, err error) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(duration.Seconds())
	if err != nil {
		m.stageErrorsTotal.WithLabelValues(m.service, stage).Inc()
	}
}

func (m *Metrics) ObserveLexicalFallback(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.lexicalFallbacks.WithLabelValues(m.service, reason).Inc()
}

func (m *Metrics) ObserveQuery(status string, contextSize int, duration time.Duration) {
	m.queriesTotal.WithLabelValues(m.service, status).Inc()
	m.queryDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
	if status == "success" {
		m.contextDocuments.WithLabelValues(m.service).Observe(float64(contextSize))
	}
}

func (m *Metrics) ObserveIngestPath(status domain.PathStatus, chunks int) {
	m.ingestPathsTotal.WithLabelValues(m.service, string(status)).Inc()
	if chunks > 0 {
		m.ingestChunksTotal.WithLabelValues(m.service).Add(float64(chunks))
	}
}

func (m *Metrics) RetryAttempt(operation string) {
	m.retryAttemptsTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *Metrics) BreakerStateChange(operation, to string) {
	m.breakerTransitions.WithLabelValues(m.service, operation, to).Inc()
}
