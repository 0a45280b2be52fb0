package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

// Store keeps every collection in one rag_documents table.
type Store struct {
	db         *sql.DB
	collection string
}

func NewStore(db *sql.DB, collection string) *Store {
	return &Store{db: db, collection: collection}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS rag_documents (
	id BIGSERIAL PRIMARY KEY,
	collection TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	embedding vector NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rag_documents_collection ON rag_documents(collection, id);
CREATE INDEX IF NOT EXISTS idx_rag_documents_metadata ON rag_documents USING GIN (metadata);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("documents/vectors mismatch: %d vs %d", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
INSERT INTO rag_documents (collection, content, metadata, embedding)
VALUES ($1, $2, $3::jsonb, $4)`
	for i, doc := range docs {
		meta, err := marshalMetadata(doc.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, s.collection, doc.Content, meta, pgv.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, queryVector []float32, limit int, filter domain.Filter) ([]domain.Document, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, args := searchQuery(s.collection, queryVector, limit, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (s *Store) Documents(ctx context.Context) ([]domain.Document, error) {
	const query = `
SELECT content, metadata
FROM rag_documents
WHERE collection = $1
ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, s.collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var out []domain.Document
	for rows.Next() {
		var (
			content string
			rawMeta []byte
		)
		if err := rows.Scan(&content, &rawMeta); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		meta := domain.Metadata{}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &meta); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, domain.Document{Content: content, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func marshalMetadata(m domain.Metadata) (string, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(raw), nil
}

// searchQuery compares each filter key as text (metadata->>key) against the
// printed filter value, so 2 and "2" select the same rows as
// domain.Filter.Matches does.
func searchQuery(collection string, queryVector []float32, limit int, filter domain.Filter) (string, []any) {
	args := []any{collection, pgv.NewVector(queryVector), limit}

	var b strings.Builder
	b.WriteString("\nSELECT content, metadata\nFROM rag_documents\nWHERE collection = $1")

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		args = append(args, k, fmt.Sprint(filter[k]))
		fmt.Fprintf(&b, " AND metadata->>$%d = $%d", len(args)-1, len(args))
	}

	b.WriteString("\nORDER BY embedding <=> $2\nLIMIT $3")
	return b.String(), args
}
