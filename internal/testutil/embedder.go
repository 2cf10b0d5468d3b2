// Package testutil provides shared test doubles and infrastructure helpers:
// a deterministic embedder, a scripted model backend, an in-memory document
// store, and a pgvector test container.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// EmbeddingDim matches the production schema's vector width.
const EmbeddingDim = 768

// MockEmbedder is a deterministic ai.Embedder: the vector for a text is
// derived from its hash, so equal texts embed equally across runs and
// different texts land far apart. Specific texts can be pinned to chosen
// vectors to steer similarity rankings in tests.
//
// Thread-safe for concurrent use.
type MockEmbedder struct {
	mu     sync.Mutex
	pinned map[string][]float32
	calls  int
	err    error
}

// NewMockEmbedder creates an embedder with no pinned vectors.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{pinned: make(map[string][]float32)}
}

// SetVector pins the embedding returned for an exact text.
func (m *MockEmbedder) SetVector(text string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[text] = vec
}

// SetError makes every subsequent Embed call fail with err.
func (m *MockEmbedder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many Embed requests were served.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Embed implements ai.Embedder.
func (m *MockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		text := ""
		for _, part := range doc.Content {
			text += part.Text
		}
		vec, ok := m.pinned[text]
		if !ok {
			vec = hashVector(text)
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}

// Name implements ai.Embedder.
func (m *MockEmbedder) Name() string { return "mockEmbedder" }

// Register implements ai.Embedder.
func (m *MockEmbedder) Register(api.Registry) {}

// hashVector expands sha256(text) into a unit-length vector.
func hashVector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))

	vec := make([]float32, EmbeddingDim)
	var norm float64
	for i := range vec {
		word := binary.LittleEndian.Uint32(sum[(i*4)%len(sum):][:4])
		// Rotate the digest per index so the vector is not periodic.
		v := float64(word^uint32(i*2654435761)) / float64(math.MaxUint32)
		vec[i] = float32(v*2 - 1)
		norm += float64(vec[i]) * float64(vec[i])
	}

	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
