package httpadapter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

// confinePaths resolves client supplied paths against root. Relative paths
// are taken as relative to root; any path that lands outside it is rejected.
func confinePaths(root string, paths []string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve ingest root: %w", err)
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		candidate := p
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(absRoot, candidate)
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "resolve path", err)
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "resolve path",
				fmt.Errorf("path %q is outside the ingest root", p))
		}
		out = append(out, abs)
	}
	return out, nil
}
