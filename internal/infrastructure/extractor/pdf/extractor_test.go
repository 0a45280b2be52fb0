package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/storage/localfs"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(lines ...string) []byte {
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, 0, len(lines))
	for i := range lines {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+i*2))
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(lines)))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, line := range lines {
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", line)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>", 5+i*2),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objects))
	for i, obj := range objects {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	storage, err := localfs.New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	return NewExtractor(storage)
}

func TestExtractReturnsZeroBasedPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constitution.pdf")
	if err := os.WriteFile(path, buildPDF("Article 5 franchise", "Chapter 2 elections"), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}

	pages, err := newExtractor(t).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %+v", pages)
	}
	if pages[0].Number != 0 || !strings.Contains(pages[0].Text, "Article 5") {
		t.Fatalf("unexpected first page %+v", pages[0])
	}
	if pages[1].Number != 1 || !strings.Contains(pages[1].Text, "Chapter 2") {
		t.Fatalf("unexpected second page %+v", pages[1])
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("plain text, not a pdf"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := newExtractor(t).Extract(context.Background(), path)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	if got := cleanText("  Article\x00 5 \t\t text \n"); got != "Article 5 text" {
		t.Fatalf("cleanText() = %q", got)
	}
}
