// Package retrieval composes the chunker, the embedding provider and the
// document store into the "find relevant passages" and "read whole document"
// operations the agent relies on.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/danpun9/memocore/internal/chunker"
	"github.com/danpun9/memocore/internal/docstore"
	"github.com/danpun9/memocore/internal/log"
)

const (
	// DocumentExtension is the recognized document extension. Every stored
	// file name carries it.
	DocumentExtension = ".md"

	// CandidatePool is the number of nearest neighbors fetched before the
	// top-k cut is applied.
	CandidatePool = 25
)

// Store is the document/vector store consumed by the service.
// *docstore.Store is the production implementation.
type Store interface {
	CreateDocument(ctx context.Context, doc docstore.Document, chunks []docstore.Chunk) (string, error)
	ReplaceDocument(ctx context.Context, id, newText string, chunks []docstore.Chunk) error
	RemoveDocument(ctx context.Context, id string) error
	GetByFileName(ctx context.Context, fileName string) (docstore.Document, error)
	List(ctx context.Context) iter.Seq2[docstore.Document, error]
	CountDocuments(ctx context.Context) (int64, error)
	SimilaritySearch(ctx context.Context, embedding []float32, poolSize int) ([]docstore.ScoredChunk, error)
}

// Config contains the required parameters for the Service.
type Config struct {
	Store        Store
	Embedder     ai.Embedder
	Logger       log.Logger
	ChunkSize    int // 0 = default 1000
	ChunkOverlap int // applies when ChunkSize > 0
}

// Service implements ingestion, reindexing, similarity search and exact
// document lookup. Safe for concurrent use; mutations of the same document
// are serialized by the store.
type Service struct {
	store        Store
	embedder     ai.Embedder
	logger       log.Logger
	chunkSize    int
	chunkOverlap int
}

// New creates a retrieval Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("retrieval: store is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("retrieval: embedder is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	chunkSize := cfg.ChunkSize
	chunkOverlap := cfg.ChunkOverlap
	if chunkSize <= 0 {
		chunkSize = 1000
		chunkOverlap = 100
	}

	return &Service{
		store:        cfg.Store,
		embedder:     cfg.Embedder,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// ResolveFileName appends the document extension to a title that lacks it.
func ResolveFileName(title string) string {
	if strings.HasSuffix(title, DocumentExtension) {
		return title
	}
	return title + DocumentExtension
}

// Create ingests a new document: chunks the content, embeds every chunk, and
// stores document plus chunks atomically. Embedding failures abort the whole
// ingestion; no half-indexed document is left behind. Returns the resolved
// file name and docstore.ErrDocumentExists on a name collision.
func (s *Service) Create(ctx context.Context, title, content string) (string, error) {
	fileName := ResolveFileName(title)

	chunks, err := s.buildChunks(ctx, "", fileName, content)
	if err != nil {
		return "", err
	}

	doc := docstore.Document{
		ID:       uuid.NewString(),
		FileName: fileName,
		Text:     content,
	}
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}

	if _, err := s.store.CreateDocument(ctx, doc, chunks); err != nil {
		return "", err
	}

	s.logger.Info("ingested document", "file_name", fileName, "chunks", len(chunks))
	return fileName, nil
}

// Edit overwrites a document's text and regenerates its full chunk set. The
// store applies text update and chunk replacement in one transaction, so no
// reader observes new text with old chunks. Returns the resolved file name
// and docstore.ErrDocumentNotFound when the document does not exist.
func (s *Service) Edit(ctx context.Context, title, newContent string) (string, error) {
	fileName := ResolveFileName(title)

	doc, err := s.store.GetByFileName(ctx, fileName)
	if err != nil {
		return "", err
	}

	chunks, err := s.buildChunks(ctx, doc.ID, fileName, newContent)
	if err != nil {
		return "", err
	}

	if err := s.store.ReplaceDocument(ctx, doc.ID, newContent, chunks); err != nil {
		return "", err
	}

	s.logger.Info("reindexed document", "file_name", fileName, "chunks", len(chunks))
	return fileName, nil
}

// Delete removes a document and all its chunks together. Returns the resolved
// file name and docstore.ErrDocumentNotFound when the document does not exist.
func (s *Service) Delete(ctx context.Context, title string) (string, error) {
	fileName := ResolveFileName(title)

	doc, err := s.store.GetByFileName(ctx, fileName)
	if err != nil {
		return "", err
	}

	if err := s.store.RemoveDocument(ctx, doc.ID); err != nil {
		return "", err
	}

	s.logger.Info("deleted document", "file_name", fileName)
	return fileName, nil
}

// Search embeds the query, fetches a candidate pool of nearest chunks and
// returns the top topK by similarity, descending.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]docstore.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}

	embedding, err := s.embedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.store.SimilaritySearch(ctx, embedding, CandidatePool)
	if err != nil {
		return nil, err
	}

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ReadDocument returns the full text of the named document, bypassing vector
// search. The second return reports whether the document exists.
func (s *Service) ReadDocument(ctx context.Context, fileName string) (string, bool, error) {
	doc, err := s.store.GetByFileName(ctx, fileName)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return doc.Text, true, nil
}

// List streams all documents ordered by insertion.
func (s *Service) List(ctx context.Context) iter.Seq2[docstore.Document, error] {
	return s.store.List(ctx)
}

// ListFileNames returns the file names of all stored documents, ordered by
// insertion.
func (s *Service) ListFileNames(ctx context.Context) ([]string, error) {
	var names []string
	for doc, err := range s.store.List(ctx) {
		if err != nil {
			return nil, err
		}
		names = append(names, doc.FileName)
	}
	return names, nil
}

// HasDocuments reports whether any document is stored.
func (s *Service) HasDocuments(ctx context.Context) (bool, error) {
	n, err := s.store.CountDocuments(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// buildChunks splits content and embeds every chunk in one request.
// All-or-nothing: any embedding failure aborts the whole batch.
func (s *Service) buildChunks(ctx context.Context, docID, fileName, content string) ([]docstore.Chunk, error) {
	pieces := chunker.Split(content, s.chunkSize, s.chunkOverlap, chunker.DefaultSeparator)
	if len(pieces) == 0 {
		return nil, nil
	}

	input := make([]*ai.Document, len(pieces))
	for i, p := range pieces {
		input[i] = ai.DocumentFromText(p, nil)
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("embed chunks for %q: %w", fileName, err)
	}
	if len(resp.Embeddings) != len(pieces) {
		return nil, fmt.Errorf("embed chunks for %q: got %d embeddings for %d chunks",
			fileName, len(resp.Embeddings), len(pieces))
	}

	chunks := make([]docstore.Chunk, len(pieces))
	for i, p := range pieces {
		if len(resp.Embeddings[i].Embedding) == 0 {
			return nil, fmt.Errorf("embed chunks for %q: empty embedding at index %d", fileName, i)
		}
		chunks[i] = docstore.Chunk{
			DocumentID: docID,
			FileName:   fileName,
			Text:       p,
			Embedding:  resp.Embeddings[i].Embedding,
		}
	}
	return chunks, nil
}

func (s *Service) embedOne(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embeddings[0].Embedding, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, docstore.ErrDocumentNotFound)
}
