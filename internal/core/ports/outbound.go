package ports

import (
	"context"
	"io"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

// DenseIndex stores documents and answers similarity queries.
type DenseIndex interface {
	AddDocuments(ctx context.Context, docs []domain.Document) error
	SimilaritySearch(ctx context.Context, query string, k int, filter domain.Filter) ([]domain.Document, error)
}

// LexicalIndex ranks the current corpus snapshot by term overlap.
type LexicalIndex interface {
	Build(docs []domain.Document)
	Append(docs []domain.Document)
	Built() bool
	Tokenize(text string) []string
	TopN(query string, n int) []domain.Document
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists document vectors and performs nearest-neighbour search.
type VectorStore interface {
	Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.Filter) ([]domain.Document, error)
}

// CorpusLister replays every stored document in insertion order.
type CorpusLister interface {
	Documents(ctx context.Context) ([]domain.Document, error)
}

// AnswerGenerator creates the final user-facing answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, docs []domain.Document) (string, error)
}

// Translator never fails; errors are reported inside the returned text.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// SourceStorage reads (and stores uploaded) source documents.
type SourceStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// TextExtractor extracts page-ordered text from a source file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) ([]domain.Page, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// IngestQueue carries ingestion requests between processes.
type IngestQueue interface {
	PublishIngestRequest(ctx context.Context, paths []string) error
	SubscribeIngestRequests(ctx context.Context, handler func(context.Context, []string) error) error
}
