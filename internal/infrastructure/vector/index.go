package vector

import (
	"context"
	"fmt"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/core/ports"
)

// EmbeddingIndex turns a VectorStore into a text-level dense index.
type EmbeddingIndex struct {
	embedder ports.Embedder
	store    ports.VectorStore
}

func NewEmbeddingIndex(embedder ports.Embedder, store ports.VectorStore) *EmbeddingIndex {
	return &EmbeddingIndex{embedder: embedder, store: store}
}

func (i *EmbeddingIndex) AddDocuments(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Content)
	}
	vectors, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embed documents: expected %d vectors, got %d", len(docs), len(vectors))
	}
	if err := i.store.Upsert(ctx, docs, vectors); err != nil {
		return fmt.Errorf("upsert documents: %w", err)
	}
	return nil
}

func (i *EmbeddingIndex) SimilaritySearch(ctx context.Context, query string, k int, filter domain.Filter) ([]domain.Document, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	docs, err := i.store.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return docs, nil
}

// Documents lists the stored corpus when the underlying store supports it.
func (i *EmbeddingIndex) Documents(ctx context.Context) ([]domain.Document, error) {
	lister, ok := i.store.(ports.CorpusLister)
	if !ok {
		return nil, fmt.Errorf("vector store %T cannot list documents", i.store)
	}
	return lister.Documents(ctx)
}
