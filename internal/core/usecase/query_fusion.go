package usecase

import "github.com/kirillkom/electoral-rag/internal/core/domain"

// fuseDenseFirst copies the dense results as they are and fills the
// remaining capacity with lexical results whose content is neither in the
// dense list nor already appended. Scores are never compared across the
// two lists.
func fuseDenseFirst(dense, lexical []domain.Document, k int) []domain.Document {
	seen := make(map[string]struct{}, len(dense)+len(lexical))
	out := make([]domain.Document, 0, len(dense)+len(lexical))

	out = append(out, dense...)
	for _, doc := range dense {
		seen[doc.Content] = struct{}{}
	}
	for _, doc := range lexical {
		if _, ok := seen[doc.Content]; ok {
			continue
		}
		seen[doc.Content] = struct{}{}
		out = append(out, doc)
	}

	return trimCandidates(out, k)
}

func trimCandidates(docs []domain.Document, limit int) []domain.Document {
	if limit <= 0 || len(docs) <= limit {
		return docs
	}
	return docs[:limit]
}
