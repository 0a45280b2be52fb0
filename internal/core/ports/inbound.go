package ports

import (
	"context"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

// DocumentProcessor turns one source file into enriched chunks.
type DocumentProcessor interface {
	Process(ctx context.Context, path string) ([]domain.Document, error)
}

// DocumentIngestor is the inbound contract for corpus ingestion.
type DocumentIngestor interface {
	AddPaths(ctx context.Context, paths []string) (*domain.IngestReport, error)
}

// QueryService is the inbound contract for question answering.
type QueryService interface {
	Answer(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error)
}
