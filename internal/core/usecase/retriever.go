package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/core/ports"
)

const DefaultTopK = 4

// Reasons reported when a query is answered from the dense index alone.
const (
	FallbackDisabled = "disabled"
	FallbackNotBuilt = "not_built"
	FallbackNoTokens = "no_tokens"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, opts ...RetrieveOption) ([]domain.Document, error)
}

type retrieveConfig struct {
	useLexical bool
	filter     domain.Filter
}

type RetrieveOption func(*retrieveConfig)

func WithoutLexical() RetrieveOption {
	return func(c *retrieveConfig) { c.useLexical = false }
}

// WithFilter restricts the dense lookup. The lexical index ignores it.
func WithFilter(filter domain.Filter) RetrieveOption {
	return func(c *retrieveConfig) { c.filter = filter }
}

type HybridRetriever struct {
	dense    ports.DenseIndex
	lexical  ports.LexicalIndex
	observer Observer
}

func NewHybridRetriever(dense ports.DenseIndex, lexical ports.LexicalIndex, observer Observer) *HybridRetriever {
	return &HybridRetriever{
		dense:    dense,
		lexical:  lexical,
		observer: observerOrNop(observer),
	}
}

func (r *HybridRetriever) Retrieve(ctx context.Context, query string, k int, opts ...RetrieveOption) ([]domain.Document, error) {
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("k must be positive, got %d", k))
	}
	cfg := retrieveConfig{useLexical: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if reason := r.denseOnlyReason(query, cfg); reason != "" {
		docs, err := r.dense.SimilaritySearch(ctx, query, k, cfg.filter)
		if err != nil {
			return nil, fmt.Errorf("dense search: %w", err)
		}
		r.observer.ObserveLexicalFallback(reason)
		return docs, nil
	}

	var dense, lexical []domain.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := r.dense.SimilaritySearch(gctx, query, k, cfg.filter)
		if err != nil {
			return fmt.Errorf("dense search: %w", err)
		}
		dense = docs
		return nil
	})
	g.Go(func() error {
		lexical = r.lexical.TopN(query, k)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fuseDenseFirst(dense, lexical, k), nil
}

func (r *HybridRetriever) denseOnlyReason(query string, cfg retrieveConfig) string {
	switch {
	case !cfg.useLexical || r.lexical == nil:
		return FallbackDisabled
	case !r.lexical.Built():
		return FallbackNotBuilt
	case len(r.lexical.Tokenize(query)) == 0:
		return FallbackNoTokens
	default:
		return ""
	}
}
