package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

func TestUpsertEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	var upserted []point
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			var body struct {
				Points []point `json:"points"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			upserted = append(upserted, body.Points...)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "docs", nil)
	docs := []domain.Document{
		{Content: "a", Metadata: domain.Metadata{"source": "a.pdf"}},
		{Content: "b"},
	}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.Upsert(context.Background(), docs, vectors); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	if err := client.Upsert(context.Background(), docs, vectors); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
	if len(upserted) != 4 || upserted[0].Payload["content"] != "a" {
		t.Fatalf("unexpected points %+v", upserted)
	}
}

func TestEnsureCollectionToleratesConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/docs" {
			http.Error(w, "exists", http.StatusConflict)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	if err := New(server.URL, "docs", nil).Upsert(context.Background(), []domain.Document{{Content: "a"}}, [][]float32{{1}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docs" {
			http.Error(w, "boom", http.StatusBadRequest)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	err := New(server.URL, "docs", nil).Upsert(context.Background(), []domain.Document{{Content: "a"}}, [][]float32{{0.1, 0.2}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestSearchSendsMetadataFilterAndDecodesPayload(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/search" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"result":[{"score":0.9,"payload":{"content":"Article 98","metadata":{"source":"constitution.pdf","page":4}}}]}`))
	}))
	defer server.Close()

	docs, err := New(server.URL, "docs", nil).Search(context.Background(), []float32{1, 0}, 3, domain.Filter{"source": "constitution.pdf"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Content != "Article 98" || docs[0].Source() != "constitution.pdf" {
		t.Fatalf("unexpected docs %+v", docs)
	}
	if !(domain.Filter{"page": 4}).Matches(docs[0].Metadata) {
		t.Fatalf("numeric metadata must survive decoding, got %v", docs[0].Metadata)
	}

	filter, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("expected filter in request, got %v", captured)
	}
	must := filter["must"].([]any)
	cond := must[0].(map[string]any)
	if cond["key"] != "metadata.source" {
		t.Fatalf("unexpected filter key %v", cond["key"])
	}
	if captured["limit"].(float64) != 3 {
		t.Fatalf("unexpected limit %v", captured["limit"])
	}
}

func TestSearchMissingCollectionReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found: Collection `docs` doesn't exist!", http.StatusNotFound)
	}))
	defer server.Close()

	docs, err := New(server.URL, "docs", nil).Search(context.Background(), []float32{1}, 4, nil)
	if err != nil || len(docs) != 0 {
		t.Fatalf("expected empty result, got %v, %v", docs, err)
	}
}

func TestDocumentsScrollsAllPagesInInsertionOrder(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/scroll" {
			http.NotFound(w, r)
			return
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			_, _ = w.Write([]byte(`{"result":{"points":[{"payload":{"content":"second","seq":1700000000000000002}}],"next_page_offset":"p2"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"points":[{"payload":{"content":"first","seq":1700000000000000001}}],"next_page_offset":null}}`))
	}))
	defer server.Close()

	docs, err := New(server.URL, "docs", nil).Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents() error = %v", err)
	}
	if len(docs) != 2 || docs[0].Content != "first" || docs[1].Content != "second" {
		t.Fatalf("unexpected order %v", docs)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 scroll pages, got %d", calls)
	}
}

func TestServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL, "docs", nil).Search(context.Background(), []float32{1}, 4, nil)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
