package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

type eventsFake struct {
	retries     []string
	transitions []string
}

func (f *eventsFake) RetryAttempt(operation string) {
	f.retries = append(f.retries, operation)
}

func (f *eventsFake) BreakerStateChange(operation, to string) {
	f.transitions = append(f.transitions, operation+":"+to)
}

func TestCallReturnsValueAfterRetryAndReportsEvents(t *testing.T) {
	events := &eventsFake{}
	exec := NewExecutor(Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	}).WithEvents(events)

	attempts := 0
	got, err := Call(context.Background(), exec, "embed", func(context.Context) ([]float32, error) {
		attempts++
		if attempts == 1 {
			return nil, &HTTPStatusError{Service: "ollama", Operation: "embed", StatusCode: http.StatusServiceUnavailable, Status: "503"}
		}
		return []float32{1, 2}, nil
	}, ClassifyHTTPError)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected value from second attempt, got %v", got)
	}
	if len(events.retries) != 1 || events.retries[0] != "embed" {
		t.Fatalf("expected one retry event, got %v", events.retries)
	}
}

func TestCallWithNilExecutorInvokesDirectly(t *testing.T) {
	got, err := Call(context.Background(), nil, "op", func(context.Context) (string, error) {
		return "direct", nil
	}, nil)
	if err != nil || got != "direct" {
		t.Fatalf("Call() = %q, %v", got, err)
	}
}

func TestClassifyHTTPError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "rate limited", err: &HTTPStatusError{StatusCode: http.StatusTooManyRequests}, retryable: true, record: true},
		{name: "bad request", err: &HTTPStatusError{StatusCode: http.StatusBadRequest}, retryable: false, record: false},
		{name: "canceled", err: fmt.Errorf("wrapped: %w", context.Canceled), retryable: false, record: false},
		{name: "circuit open", err: gobreaker.ErrOpenState, retryable: true, record: true},
		{name: "unknown", err: errors.New("boom"), retryable: false, record: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyHTTPError(tc.err)
			if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
				t.Fatalf("ClassifyHTTPError() = %+v", got)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	transient := &HTTPStatusError{Service: "qdrant", Operation: "search", StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}
	if err := WrapTemporaryIfNeeded("qdrant search", transient, nil); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	permanent := &HTTPStatusError{StatusCode: http.StatusNotFound}
	if err := WrapTemporaryIfNeeded("qdrant search", permanent, nil); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not be temporary")
	}
	if WrapTemporaryIfNeeded("op", nil, nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestNewHTTPStatusErrorIncludesBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusInternalServerError,
		Status:     "500 Internal Server Error",
		Body:       io.NopCloser(strings.NewReader("model unavailable")),
	}
	err := NewHTTPStatusError("ollama", "generate", resp)
	if !strings.Contains(err.Error(), "model unavailable") || !strings.Contains(err.Error(), "ollama generate") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}
