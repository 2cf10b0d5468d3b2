package testutil

import (
	"context"
	"iter"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/danpun9/memocore/internal/docstore"
)

// MemStore is an in-memory retrieval.Store with brute-force cosine search.
// It honors the same uniqueness and cascade rules as the Postgres store, so
// service and agent tests can run without a database.
//
// Thread-safe for concurrent use.
type MemStore struct {
	mu     sync.Mutex
	docs   map[string]docstore.Document // keyed by ID
	order  []string                     // IDs in insertion order
	chunks map[string][]docstore.Chunk  // keyed by document ID
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		docs:   make(map[string]docstore.Document),
		chunks: make(map[string][]docstore.Chunk),
	}
}

// CreateDocument implements retrieval.Store.
func (m *MemStore) CreateDocument(_ context.Context, doc docstore.Document, chunks []docstore.Chunk) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.docs {
		if existing.FileName == doc.FileName {
			return "", docstore.ErrDocumentExists
		}
	}

	if doc.AddedAt.IsZero() {
		doc.AddedAt = time.Now()
	}
	m.docs[doc.ID] = doc
	m.order = append(m.order, doc.ID)
	m.chunks[doc.ID] = append([]docstore.Chunk(nil), chunks...)
	return doc.ID, nil
}

// ReplaceDocument implements retrieval.Store.
func (m *MemStore) ReplaceDocument(_ context.Context, id, newText string, chunks []docstore.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok {
		return docstore.ErrDocumentNotFound
	}
	doc.Text = newText
	m.docs[id] = doc
	m.chunks[id] = append([]docstore.Chunk(nil), chunks...)
	return nil
}

// RemoveDocument implements retrieval.Store.
func (m *MemStore) RemoveDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return docstore.ErrDocumentNotFound
	}
	delete(m.docs, id)
	delete(m.chunks, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetByFileName implements retrieval.Store.
func (m *MemStore) GetByFileName(_ context.Context, fileName string) (docstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range m.docs {
		if doc.FileName == fileName {
			return doc, nil
		}
	}
	return docstore.Document{}, docstore.ErrDocumentNotFound
}

// List implements retrieval.Store, yielding documents in insertion order.
func (m *MemStore) List(_ context.Context) iter.Seq2[docstore.Document, error] {
	m.mu.Lock()
	snapshot := make([]docstore.Document, 0, len(m.order))
	for _, id := range m.order {
		snapshot = append(snapshot, m.docs[id])
	}
	m.mu.Unlock()

	return func(yield func(docstore.Document, error) bool) {
		for _, doc := range snapshot {
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// CountDocuments implements retrieval.Store.
func (m *MemStore) CountDocuments(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.docs)), nil
}

// SimilaritySearch implements retrieval.Store with exact cosine similarity.
func (m *MemStore) SimilaritySearch(_ context.Context, embedding []float32, poolSize int) ([]docstore.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var scored []docstore.ScoredChunk
	for _, id := range m.order {
		for _, c := range m.chunks[id] {
			scored = append(scored, docstore.ScoredChunk{
				Score: cosine(embedding, c.Embedding),
				Chunk: c,
			})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > poolSize {
		scored = scored[:poolSize]
	}
	return scored, nil
}

// ChunksFor returns a copy of the stored chunks for a file name.
func (m *MemStore) ChunksFor(fileName string) []docstore.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, doc := range m.docs {
		if doc.FileName == fileName {
			return append([]docstore.Chunk(nil), m.chunks[id]...)
		}
	}
	return nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
