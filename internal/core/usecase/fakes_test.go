package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

type denseFake struct {
	mu      sync.Mutex
	results []domain.Document
	err     error
	addErr  error

	queries []string
	ks      []int
	filters []domain.Filter
	added   []domain.Document
}

func (f *denseFake) SimilaritySearch(_ context.Context, query string, k int, filter domain.Filter) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.ks = append(f.ks, k)
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *denseFake) AddDocuments(_ context.Context, docs []domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, docs...)
	return nil
}

type lexicalFake struct {
	built   bool
	tokens  []string
	results []domain.Document
	topNs   int
	corpus  []domain.Document
}

func (f *lexicalFake) Build(docs []domain.Document) {
	f.built = true
	f.corpus = append([]domain.Document(nil), docs...)
}

func (f *lexicalFake) Append(docs []domain.Document) {
	f.built = true
	f.corpus = append(f.corpus, docs...)
}

func (f *lexicalFake) Built() bool { return f.built }
func (f *lexicalFake) Tokenize(string) []string { return f.tokens }
func (f *lexicalFake) TopN(_ string, n int) []domain.Document {
	f.topNs++
	if len(f.results) > n {
		return f.results[:n]
	}
	return f.results
}

type generatorFake struct {
	answer   string
	err      error
	question string
	docs     []domain.Document
}

func (f *generatorFake) GenerateAnswer(_ context.Context, question string, docs []domain.Document) (string, error) {
	f.question = question
	f.docs = docs
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type translatorFake struct {
	calls int
}

func (f *translatorFake) Translate(_ context.Context, text string) string {
	f.calls++
	return "si:" + text
}

type observerFake struct {
	mu        sync.Mutex
	stages    []string
	stageErrs []error
	fallbacks []string
	queries   []string
	paths     []domain.PathStatus
}

func (o *observerFake) ObserveStage(stage string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
	o.stageErrs = append(o.stageErrs, err)
}

func (o *observerFake) ObserveLexicalFallback(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, reason)
}

func (o *observerFake) ObserveQuery(status string, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queries = append(o.queries, status)
}

func (o *observerFake) ObserveIngestPath(status domain.PathStatus, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paths = append(o.paths, status)
}

func doc(content, source string) domain.Document {
	return domain.Document{Content: content, Metadata: domain.Metadata{"source": source}}
}

func contentsOf(docs []domain.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Content)
	}
	return out
}
