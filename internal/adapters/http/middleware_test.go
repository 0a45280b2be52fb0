package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDIsReplacedWhenUnusable(t *testing.T) {
	for _, raw := range []string{strings.Repeat("a", maxRequestIDLength+1), "bad\nid", "ид"} {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(requestIDHeader, raw)
		res := httptest.NewRecorder()
		requestIDMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(res, req)

		got := res.Header().Get(requestIDHeader)
		if got == "" || got == raw {
			t.Fatalf("expected a minted request id for %q, got %q", raw, got)
		}
	}
}

func TestRecoverMiddlewareWritesErrorBody(t *testing.T) {
	handler := recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/rag/query", nil)
	req = req.WithContext(context.WithValue(req.Context(), requestIDContextKey{}, "req-7"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RequestID != "req-7" || body.Error != "internal error" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestRecoverMiddlewareRepanicsOnAbort(t *testing.T) {
	handler := recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
