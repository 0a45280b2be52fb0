package local

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/hupe1980/vecgo"
	"github.com/hupe1980/vecgo/metadata"
	"github.com/hupe1980/vecgo/model"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

// Store keeps one vecgo database per collection under a persist directory.
// A new collection is created on the first Upsert, once the embedding
// dimension is known.
type Store struct {
	mu  sync.Mutex
	dir string
	db  *vecgo.DB
	dim int
}

// payload is what vecgo keeps next to each vector. Metadata stays typed
// here; the vecgo metadata document only carries string forms for filtering.
type payload struct {
	Content  string          `json:"content"`
	Metadata domain.Metadata `json:"metadata,omitempty"`
}

func Open(ctx context.Context, dir, collection string) (*Store, error) {
	if collection == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open local store", fmt.Errorf("collection name is required"))
	}
	if filepath.Base(collection) != collection {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open local store", fmt.Errorf("collection name %q must not contain path separators", collection))
	}

	path := filepath.Join(dir, collection)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create collection directory: %w", err)
	}

	s := &Store{dir: path}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read collection directory: %w", err)
	}
	if len(entries) == 0 {
		return s, nil
	}

	db, err := vecgo.Open(ctx, vecgo.Local(path))
	if err != nil {
		return nil, fmt.Errorf("open vecgo collection: %w", err)
	}
	s.db = db
	return s, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Path() string {
	return s.dir
}

func (s *Store) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("documents/vectors mismatch: %d vs %d", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		db, err := vecgo.Open(ctx, vecgo.Local(s.dir), vecgo.Create(len(vectors[0]), vecgo.MetricCosine))
		if err != nil {
			return fmt.Errorf("create vecgo collection: %w", err)
		}
		s.db = db
		s.dim = len(vectors[0])
	}

	mds := make([]metadata.Document, len(docs))
	payloads := make([][]byte, len(docs))
	for i, doc := range docs {
		if s.dim > 0 && len(vectors[i]) != s.dim {
			return domain.WrapError(domain.ErrInvalidInput, "upsert local store",
				fmt.Errorf("vector %d has dimension %d, collection uses %d", i, len(vectors[i]), s.dim))
		}
		raw, err := json.Marshal(payload{Content: doc.Content, Metadata: doc.Metadata})
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		payloads[i] = raw
		mds[i] = filterDocument(doc.Metadata)
	}

	if _, err := s.db.BatchInsert(ctx, vectors, mds, payloads); err != nil {
		return fmt.Errorf("insert documents: %w", err)
	}
	if err := s.db.Commit(ctx); err != nil {
		return fmt.Errorf("commit documents: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, queryVector []float32, limit int, filter domain.Filter) ([]domain.Document, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, nil
	}

	opts := []func(*model.SearchOptions){vecgo.WithPayload()}
	if fs := filterSet(filter); fs != nil {
		opts = append(opts, vecgo.WithFilter(fs))
	}
	results, err := db.Search(ctx, queryVector, limit, opts...)
	if err != nil {
		return nil, fmt.Errorf("search collection: %w", err)
	}

	out := make([]domain.Document, 0, len(results))
	for _, r := range results {
		doc, err := decodePayload(r.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Documents returns every stored chunk in insertion order.
func (s *Store) Documents(ctx context.Context) ([]domain.Document, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, nil
	}

	type stored struct {
		id  model.ID
		doc domain.Document
	}
	var rows []stored
	for record, err := range db.Scan(ctx) {
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		doc, err := decodePayload(record.Payload)
		if err != nil {
			return nil, err
		}
		rows = append(rows, stored{id: record.ID, doc: doc})
	}
	slices.SortStableFunc(rows, func(a, b stored) int {
		return cmp.Compare(a.id, b.id)
	})

	out := make([]domain.Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.doc)
	}
	return out, nil
}

// filterDocument indexes every metadata value by its printed form so that
// equality filters behave like domain.Filter.Matches.
func filterDocument(m domain.Metadata) metadata.Document {
	if len(m) == 0 {
		return nil
	}
	out := make(metadata.Document, len(m))
	for k, v := range m {
		out[k] = metadata.String(fmt.Sprint(v))
	}
	return out
}

func filterSet(filter domain.Filter) *metadata.FilterSet {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	filters := make([]metadata.Filter, 0, len(keys))
	for _, k := range keys {
		filters = append(filters, metadata.Filter{
			Key:      k,
			Operator: metadata.OpEqual,
			Value:    metadata.String(fmt.Sprint(filter[k])),
		})
	}
	return metadata.NewFilterSet(filters...)
}

func decodePayload(raw []byte) (domain.Document, error) {
	if len(raw) == 0 {
		return domain.Document{}, errors.New("stored record has no payload")
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Document{}, fmt.Errorf("decode payload: %w", err)
	}
	if p.Metadata == nil {
		p.Metadata = domain.Metadata{}
	}
	return domain.Document{Content: p.Content, Metadata: p.Metadata}, nil
}
