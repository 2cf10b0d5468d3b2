// Package docstore persists documents and their embedded chunks in
// PostgreSQL with pgvector similarity search.
//
// Compound mutations (create, replace, remove) run in a single transaction
// holding a per-document advisory lock, so two mutations of the same document
// never interleave and a reader never observes new text with old chunks.
// Unrelated documents are not locked against each other.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/danpun9/memocore/internal/log"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// Store manages documents and chunks. Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a Store backed by the given connection pool.
// A nil logger falls back to a no-op logger.
func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// CreateDocument inserts a document together with its chunks in one
// transaction. Returns ErrDocumentExists when the file name is taken.
func (s *Store) CreateDocument(ctx context.Context, doc Document, chunks []Chunk) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockDocument(ctx, tx, doc.FileName); err != nil {
		return "", err
	}

	addedAt := doc.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO documents (id, file_name, text, added_at) VALUES ($1, $2, $3, $4)`,
		doc.ID, doc.FileName, doc.Text, addedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", fmt.Errorf("%w: %q", ErrDocumentExists, doc.FileName)
		}
		return "", fmt.Errorf("insert document %q: %w", doc.FileName, err)
	}

	if err := insertChunks(ctx, tx, doc.ID, chunks); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit create: %w", err)
	}

	s.logger.Debug("created document",
		"id", doc.ID, "file_name", doc.FileName, "chunks", len(chunks))
	return doc.ID, nil
}

// ReplaceDocument overwrites a document's text and replaces its full chunk
// set atomically. Returns ErrDocumentNotFound when the id is unknown.
func (s *Store) ReplaceDocument(ctx context.Context, id, newText string, chunks []Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var fileName string
	err = tx.QueryRow(ctx,
		`SELECT file_name FROM documents WHERE id = $1`, id).Scan(&fileName)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id %q", ErrDocumentNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("look up document %q: %w", id, err)
	}

	if err := lockDocument(ctx, tx, fileName); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE documents SET text = $2 WHERE id = $1`, id, newText); err != nil {
		return fmt.Errorf("update document %q: %w", id, err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM chunks WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("delete chunks for %q: %w", id, err)
	}

	if err := insertChunks(ctx, tx, id, chunks); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}

	s.logger.Debug("replaced document", "id", id, "chunks", len(chunks))
	return nil
}

// RemoveDocument deletes a document and all its chunks together.
// Returns ErrDocumentNotFound when the id is unknown.
func (s *Store) RemoveDocument(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var fileName string
	err = tx.QueryRow(ctx,
		`SELECT file_name FROM documents WHERE id = $1`, id).Scan(&fileName)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id %q", ErrDocumentNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("look up document %q: %w", id, err)
	}

	if err := lockDocument(ctx, tx, fileName); err != nil {
		return err
	}

	// Chunk rows go with the document via ON DELETE CASCADE.
	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document %q: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit remove: %w", err)
	}

	s.logger.Debug("removed document", "id", id, "file_name", fileName)
	return nil
}

// GetByFileName returns the document with the exact file name.
// Returns ErrDocumentNotFound when no such document exists.
func (s *Store) GetByFileName(ctx context.Context, fileName string) (Document, error) {
	var doc Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, file_name, text, added_at FROM documents WHERE file_name = $1`,
		fileName).Scan(&doc.ID, &doc.FileName, &doc.Text, &doc.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %q", ErrDocumentNotFound, fileName)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document %q: %w", fileName, err)
	}
	return doc, nil
}

// List streams all documents ordered by insertion time. The sequence is lazy:
// rows are fetched as the caller iterates and the cursor is released when
// iteration stops early.
func (s *Store) List(ctx context.Context) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		rows, err := s.pool.Query(ctx,
			`SELECT id, file_name, text, added_at FROM documents ORDER BY added_at, id`)
		if err != nil {
			yield(Document{}, fmt.Errorf("list documents: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var doc Document
			if err := rows.Scan(&doc.ID, &doc.FileName, &doc.Text, &doc.AddedAt); err != nil {
				yield(Document{}, fmt.Errorf("scan document: %w", err))
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Document{}, fmt.Errorf("list documents: %w", err))
		}
	}
}

// CountDocuments returns the total number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// SimilaritySearch returns up to poolSize chunks nearest to the query
// embedding, ordered by cosine similarity descending.
func (s *Store) SimilaritySearch(ctx context.Context, embedding []float32, poolSize int) ([]ScoredChunk, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT document_id, file_name, text, 1 - (embedding <=> $1) AS score
		 FROM chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, poolSize)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		if err := rows.Scan(&sc.Chunk.DocumentID, &sc.Chunk.FileName, &sc.Chunk.Text, &sc.Score); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return results, nil
}

// lockDocument takes a transaction-scoped advisory lock keyed on the file
// name, serializing mutations of one document without blocking others.
func lockDocument(ctx context.Context, tx pgx.Tx, fileName string) error {
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, fileName); err != nil {
		return fmt.Errorf("lock document %q: %w", fileName, err)
	}
	return nil
}

func insertChunks(ctx context.Context, tx pgx.Tx, docID string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(
			`INSERT INTO chunks (document_id, file_name, text, embedding) VALUES ($1, $2, $3, $4)`,
			docID, c.FileName, c.Text, pgvector.NewVector(c.Embedding))
	}

	br := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert chunk for %q: %w", docID, err)
		}
	}
	return br.Close()
}
