package docstore

import (
	"errors"
	"time"
)

var (
	// ErrDocumentExists indicates a create collided with an existing file name.
	ErrDocumentExists = errors.New("document already exists")

	// ErrDocumentNotFound indicates no document matches the given id or file name.
	ErrDocumentNotFound = errors.New("document not found")
)

// Document is a stored document. A document's chunks always reflect its
// latest text; every mutation that touches the text replaces the full chunk
// set in the same transaction.
type Document struct {
	ID       string
	FileName string // unique, carries the recognized extension
	Text     string
	AddedAt  time.Time
}

// Chunk is a bounded text segment derived from a document, carrying its own
// embedding for retrieval. Chunks never exist independently of a document.
type Chunk struct {
	DocumentID string
	FileName   string
	Text       string
	Embedding  []float32
}

// ScoredChunk is a chunk paired with its cosine similarity to a query.
// Chunk is embedded so results expose FileName and Text directly.
type ScoredChunk struct {
	Score float32
	Chunk
}
