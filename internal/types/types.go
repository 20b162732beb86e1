package types

import (
	"context"
	"io"

	"github.com/xhad/mediassist/internal/models"
)

// Core interfaces
type Extractor interface {
	Extract(r io.ReaderAt, size int64) (string, error)
}

type Splitter interface {
	Split(text string) ([]string, error)
}

// Embedder matches langchaingo's embeddings.Embedder so either can be used.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	Search(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error)
	Len() int
}

type IndexBuilder interface {
	Build(ctx context.Context, chunks []string) (Index, error)
}

type AnswerEngine interface {
	Answer(ctx context.Context, question string, chunks []models.RetrievedChunk) (models.GeneratedAnswer, error)
}

// EngineFactory configures a fresh answer engine for every processing run.
type EngineFactory func() (AnswerEngine, error)
