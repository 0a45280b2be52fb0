package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

func TestObserversUpdateCounters(t *testing.T) {
	m := New("rag-test")

	m.ObserveStage("generate", 10*time.Millisecond, errors.New("boom"))
	m.ObserveLexicalFallback("not_built")
	m.ObserveLexicalFallback("not_built")
	m.ObserveQuery("success", 3, time.Second)
	m.ObserveIngestPath(domain.PathProcessed, 12)
	m.ObserveIngestPath(domain.PathMissing, 0)
	m.RetryAttempt("gemini.generate")

	if got := testutil.ToFloat64(m.stageErrorsTotal.WithLabelValues("rag-test", "generate")); got != 1 {
		t.Fatalf("expected 1 stage error, got %v", got)
	}
	if got := testutil.ToFloat64(m.lexicalFallbacks.WithLabelValues("rag-test", "not_built")); got != 2 {
		t.Fatalf("expected 2 fallbacks, got %v", got)
	}
	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues("rag-test", "success")); got != 1 {
		t.Fatalf("expected 1 successful query, got %v", got)
	}
	if got := testutil.ToFloat64(m.ingestChunksTotal.WithLabelValues("rag-test")); got != 12 {
		t.Fatalf("expected 12 chunks, got %v", got)
	}
	if got := testutil.ToFloat64(m.ingestPathsTotal.WithLabelValues("rag-test", "missing")); got != 1 {
		t.Fatalf("expected 1 missing path, got %v", got)
	}
	if got := testutil.ToFloat64(m.retryAttemptsTotal.WithLabelValues("rag-test", "gemini.generate")); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}
}

func TestMiddlewareRecordsRequestsAndHandlerExposesThem(t *testing.T) {
	m := New("rag-test")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/rag/query", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path", nil))

	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("rag-test", http.MethodPost, "/v1/rag/query", "418")); got != 1 {
		t.Fatalf("expected one recorded query request, got %v", got)
	}
	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("rag-test", http.MethodGet, "other", "418")); got != 1 {
		t.Fatalf("expected unknown path collapsed to other, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "rag_http_requests_total") {
		t.Fatalf("expected exposition to include request counter")
	}
}
