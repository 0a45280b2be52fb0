package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/core/ports"
)

type IngestUseCase struct {
	processor ports.DocumentProcessor
	dense     ports.DenseIndex
	lexical   ports.LexicalIndex
	storage   ports.SourceStorage
	observer  Observer
}

func NewIngestUseCase(
	processor ports.DocumentProcessor,
	dense ports.DenseIndex,
	lexical ports.LexicalIndex,
	storage ports.SourceStorage,
	observer Observer,
) *IngestUseCase {
	return &IngestUseCase{
		processor: processor,
		dense:     dense,
		lexical:   lexical,
		storage:   storage,
		observer:  observerOrNop(observer),
	}
}

// AddPaths processes every path in order. Missing and unreadable files are
// reported and skipped; a dense index failure aborts the batch before the
// lexical index is touched.
func (uc *IngestUseCase) AddPaths(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	report := &domain.IngestReport{Paths: make([]domain.PathResult, 0, len(paths))}
	var all []domain.Document

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := domain.PathResult{Path: path}
		chunks, err := uc.processor.Process(ctx, path)
		switch {
		case domain.IsKind(err, domain.ErrDocumentNotFound):
			result.Status = domain.PathMissing
			slog.Warn("ingest_path_skipped", "path", path, "reason", "not_found")
		case err != nil:
			result.Status = domain.PathFailed
			result.Error = err.Error()
			slog.Error("ingest_path_failed", "path", path, "error", err)
		default:
			result.Status = domain.PathProcessed
			result.Chunks = len(chunks)
			all = append(all, chunks...)
			slog.Info("ingest_path_processed", "path", path, "chunks", len(chunks))
		}
		uc.observer.ObserveIngestPath(result.Status, result.Chunks)
		report.Paths = append(report.Paths, result)
	}

	if len(all) == 0 {
		return report, nil
	}

	if err := uc.dense.AddDocuments(ctx, all); err != nil {
		return report, fmt.Errorf("add documents to dense index: %w", err)
	}
	report.TotalChunks = len(all)

	if uc.lexical != nil {
		uc.lexical.Append(all)
	}
	return report, nil
}

// Upload stores an uploaded file and ingests it.
func (uc *IngestUseCase) Upload(ctx context.Context, filename string, body io.Reader) (*domain.IngestReport, error) {
	if uc.storage == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("uploads are not enabled"))
	}
	key := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	path, err := uc.storage.Save(ctx, key, body)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	return uc.AddPaths(ctx, []string{path})
}

// WarmStart seeds the lexical index from documents persisted by earlier
// runs.
func (uc *IngestUseCase) WarmStart(ctx context.Context, lister ports.CorpusLister) (int, error) {
	if uc.lexical == nil || lister == nil {
		return 0, nil
	}
	docs, err := lister.Documents(ctx)
	if err != nil {
		return 0, fmt.Errorf("list persisted documents: %w", err)
	}
	uc.lexical.Build(docs)
	slog.Info("lexical_warm_start", "documents", len(docs))
	return len(docs), nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "document.bin"
	}
	return base
}
