package store

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xhad/mediassist/internal/models"
	"github.com/xhad/mediassist/internal/types"
)

const DefaultSearchLimit = 3

// MemoryBuilder builds brute-force cosine indexes held in process memory.
type MemoryBuilder struct {
	embedder    types.Embedder
	searchLimit int
}

func NewMemoryBuilder(embedder types.Embedder, searchLimit int) *MemoryBuilder {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &MemoryBuilder{
		embedder:    embedder,
		searchLimit: searchLimit,
	}
}

func (b *MemoryBuilder) Build(ctx context.Context, chunks []string) (types.Index, error) {
	return b.BuildMemory(ctx, chunks)
}

func (b *MemoryBuilder) BuildMemory(ctx context.Context, chunks []string) (*MemoryIndex, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("cannot build index: %w", types.ErrNoText)
	}

	vectors, err := b.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	return &MemoryIndex{
		embedder:    b.embedder,
		searchLimit: b.searchLimit,
		chunks:      append([]string(nil), chunks...),
		vectors:     vectors,
		norms:       norms(vectors),
	}, nil
}

// MemoryIndex is immutable once built.
type MemoryIndex struct {
	embedder    types.Embedder
	searchLimit int
	chunks      []string
	vectors     [][]float32
	norms       []float64
}

func (m *MemoryIndex) Len() int {
	if m == nil {
		return 0
	}
	return len(m.chunks)
}

// Search returns at most k chunks ordered by descending cosine similarity.
// Equal scores keep build order.
func (m *MemoryIndex) Search(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	if m.Len() == 0 {
		return nil, types.ErrEmptyIndex
	}
	if k <= 0 {
		k = m.searchLimit
	}

	q, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	if len(q) != len(m.vectors[0]) {
		return nil, fmt.Errorf("query embedding has dimension %d, index has %d", len(q), len(m.vectors[0]))
	}
	qnorm := norm(q)

	results := make([]models.RetrievedChunk, len(m.chunks))
	for i := range m.chunks {
		results[i] = models.RetrievedChunk{
			Text:     m.chunks[i],
			Position: i,
			Score:    cosine(q, m.vectors[i], qnorm, m.norms[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func cosine(a, b []float32, anorm, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func norms(vectors [][]float32) []float64 {
	out := make([]float64, len(vectors))
	for i, v := range vectors {
		out[i] = norm(v)
	}
	return out
}
