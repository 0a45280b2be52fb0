package domain

import "fmt"

const UnknownSource = "Unknown"

// Metadata keys attached to every chunk produced by ingestion.
const (
	MetaSource  = "source"
	MetaChunkID = "chunk_id"
	MetaPage    = "page"
	MetaArticle = "article"
	MetaChapter = "chapter"
)

type Metadata map[string]any

// Document is a retrievable chunk. Two documents are the same for
// deduplication purposes when their Content is byte-identical.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
}

func (d Document) Source() string {
	if d.Metadata == nil {
		return UnknownSource
	}
	v, ok := d.Metadata[MetaSource]
	if !ok || v == nil {
		return UnknownSource
	}
	s := fmt.Sprint(v)
	if s == "" {
		return UnknownSource
	}
	return s
}

// NoPage marks text from sources without page structure.
const NoPage = -1

// Page is one unit of extracted text. Number is zero based.
type Page struct {
	Number int
	Text   string
}

// Filter is an equality predicate over document metadata.
type Filter map[string]any

func (f Filter) Matches(m Metadata) bool {
	for key, want := range f {
		got, ok := m[key]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
