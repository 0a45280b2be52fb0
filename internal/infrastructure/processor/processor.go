package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/core/ports"
)

var (
	articlePattern = regexp.MustCompile(`Article (\d+)`)
	chapterPattern = regexp.MustCompile(`Chapter (\d+)`)
)

// Processor loads a source file, splits every page and tags the chunks.
type Processor struct {
	storage    ports.SourceStorage
	chunker    ports.Chunker
	extractors map[string]ports.TextExtractor
	fallback   ports.TextExtractor
}

// New routes files by lower-case extension (".pdf") and uses fallback for
// everything else.
func New(
	storage ports.SourceStorage,
	chunker ports.Chunker,
	fallback ports.TextExtractor,
	byExtension map[string]ports.TextExtractor,
) *Processor {
	extractors := make(map[string]ports.TextExtractor, len(byExtension))
	for ext, ex := range byExtension {
		extractors[strings.ToLower(ext)] = ex
	}
	return &Processor{
		storage:    storage,
		chunker:    chunker,
		extractors: extractors,
		fallback:   fallback,
	}
}

func (p *Processor) Process(ctx context.Context, path string) ([]domain.Document, error) {
	exists, err := p.storage.Exists(ctx, path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process document", err)
	}
	if !exists {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "process document", fmt.Errorf("file not found: %s", path))
	}

	extractor := p.extractorFor(path)
	if extractor == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process document", fmt.Errorf("no extractor for %s", path))
	}
	pages, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	var out []domain.Document
	for _, page := range pages {
		for _, chunk := range p.chunker.Split(page.Text) {
			out = append(out, domain.Document{
				Content:  chunk,
				Metadata: enrich(chunk, path, len(out), page.Number),
			})
		}
	}
	return out, nil
}

func (p *Processor) extractorFor(path string) ports.TextExtractor {
	if ex, ok := p.extractors[strings.ToLower(filepath.Ext(path))]; ok {
		return ex
	}
	return p.fallback
}

func enrich(chunk, source string, chunkID, page int) domain.Metadata {
	meta := domain.Metadata{
		domain.MetaSource:  source,
		domain.MetaChunkID: chunkID,
	}
	if page != domain.NoPage {
		meta[domain.MetaPage] = page
	}
	if m := articlePattern.FindStringSubmatch(chunk); m != nil {
		meta[domain.MetaArticle] = m[1]
	}
	if m := chapterPattern.FindStringSubmatch(chunk); m != nil {
		meta[domain.MetaChapter] = m[1]
	}
	return meta
}
