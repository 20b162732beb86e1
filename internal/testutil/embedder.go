package testutil

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// Embedder hashes lower-cased words into a fixed number of buckets, so texts
// sharing words get similar vectors. It counts every call.
type Embedder struct {
	Dim int
	Err error

	mu        sync.Mutex
	Documents int
	Queries   int
}

func NewEmbedder() *Embedder {
	return &Embedder{Dim: 64}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	e.mu.Lock()
	e.Documents += len(texts)
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	e.mu.Lock()
	e.Queries++
	e.mu.Unlock()
	return e.vector(text), nil
}

func (e *Embedder) vector(text string) []float32 {
	v := make([]float32, e.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(e.Dim)]++
	}
	return v
}
