package docstore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpun9/memocore/internal/docstore"
	"github.com/danpun9/memocore/internal/testutil"
)

// embeddingDim must match the vector width in the migrations.
const embeddingDim = 768

func axisVector(axis int) []float32 {
	vec := make([]float32, embeddingDim)
	vec[axis] = 1
	return vec
}

func newDoc(fileName, text string) docstore.Document {
	return docstore.Document{ID: uuid.NewString(), FileName: fileName, Text: text}
}

func chunkFor(doc docstore.Document, text string, axis int) docstore.Chunk {
	return docstore.Chunk{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Text:       text,
		Embedding:  axisVector(axis),
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := docstore.New(db.Pool, nil)
	ctx := context.Background()

	doc := newDoc("notes.md", "hello world")
	id, err := store.CreateDocument(ctx, doc, []docstore.Chunk{chunkFor(doc, "hello world", 0)})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, id)

	got, err := store.GetByFileName(ctx, "notes.md")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "hello world", got.Text)
	assert.False(t, got.AddedAt.IsZero())

	_, err = store.GetByFileName(ctx, "other.md")
	assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
}

func TestStore_CreateDuplicateFileName(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := docstore.New(db.Pool, nil)
	ctx := context.Background()

	doc := newDoc("notes.md", "first")
	_, err := store.CreateDocument(ctx, doc, nil)
	require.NoError(t, err)

	_, err = store.CreateDocument(ctx, newDoc("notes.md", "second"), nil)
	assert.ErrorIs(t, err, docstore.ErrDocumentExists)

	// The failed insert left nothing behind.
	n, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStore_ReplaceDocument(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := docstore.New(db.Pool, nil)
	ctx := context.Background()

	doc := newDoc("notes.md", "old")
	_, err := store.CreateDocument(ctx, doc, []docstore.Chunk{chunkFor(doc, "old", 0)})
	require.NoError(t, err)

	err = store.ReplaceDocument(ctx, doc.ID, "new", []docstore.Chunk{chunkFor(doc, "new", 1)})
	require.NoError(t, err)

	got, err := store.GetByFileName(ctx, "notes.md")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Text)

	// The old chunk is gone: searching along its axis finds the new chunk
	// with near-zero similarity instead.
	results, err := store.SimilaritySearch(ctx, axisVector(0), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Text)
	assert.InDelta(t, 0, float64(results[0].Score), 1e-4)

	err = store.ReplaceDocument(ctx, uuid.NewString(), "x", nil)
	assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
}

func TestStore_RemoveDocumentCascades(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := docstore.New(db.Pool, nil)
	ctx := context.Background()

	doc := newDoc("notes.md", "body")
	_, err := store.CreateDocument(ctx, doc, []docstore.Chunk{
		chunkFor(doc, "part one", 0),
		chunkFor(doc, "part two", 1),
	})
	require.NoError(t, err)

	require.NoError(t, store.RemoveDocument(ctx, doc.ID))

	_, err = store.GetByFileName(ctx, "notes.md")
	assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)

	results, err := store.SimilaritySearch(ctx, axisVector(0), 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	err = store.RemoveDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
}

func TestStore_ListInsertionOrder(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := docstore.New(db.Pool, nil)
	ctx := context.Background()

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		_, err := store.CreateDocument(ctx, newDoc(name, name), nil)
		require.NoError(t, err)
	}

	var names []string
	for doc, err := range store.List(ctx) {
		require.NoError(t, err)
		names = append(names, doc.FileName)
	}
	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, names)

	// Early break releases the cursor without error.
	for range store.List(ctx) {
		break
	}
}

func TestStore_SimilaritySearchRanking(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := docstore.New(db.Pool, nil)
	ctx := context.Background()

	docA := newDoc("a.md", "a")
	_, err := store.CreateDocument(ctx, docA, []docstore.Chunk{chunkFor(docA, "exact match", 0)})
	require.NoError(t, err)

	docB := newDoc("b.md", "b")
	_, err = store.CreateDocument(ctx, docB, []docstore.Chunk{chunkFor(docB, "unrelated", 1)})
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, axisVector(0), 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "exact match", results[0].Text)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-4)
	assert.Greater(t, results[0].Score, results[1].Score)

	// poolSize caps the result set.
	results, err = store.SimilaritySearch(ctx, axisVector(0), 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
