package usecase

import (
	"time"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

// Observer receives pipeline telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveStage(stage string, duration time.Duration, err error)
	ObserveLexicalFallback(reason string)
	ObserveQuery(status string, contextSize int, duration time.Duration)
	ObserveIngestPath(status domain.PathStatus, chunks int)
}

type NopObserver struct{}

func (NopObserver) ObserveStage(string, time.Duration, error) {}
func (NopObserver) ObserveLexicalFallback(string) {}
func (NopObserver) ObserveQuery(string, int, time.Duration) {}
func (NopObserver) ObserveIngestPath(domain.PathStatus, int) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return NopObserver{}
	}
	return o
}
