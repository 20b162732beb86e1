package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xhad/mediassist/internal/types"
	"github.com/xhad/mediassist/pkg/config"
	"github.com/xhad/mediassist/pkg/extractor"
	"github.com/xhad/mediassist/pkg/fetcher"
	"github.com/xhad/mediassist/pkg/llm"
	"github.com/xhad/mediassist/pkg/processor"
	"github.com/xhad/mediassist/pkg/session"
	"github.com/xhad/mediassist/pkg/store"
	"go.uber.org/zap"
)

// App holds the components built from one Config.
type App struct {
	Session *session.Session
	Fetcher *fetcher.Fetcher

	vectorStore *store.PGVectorStore
}

// New validates cfg and builds the session with the configured embedder.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  cfg.Embedder.Provider,
		Model:     cfg.Embedder.Model,
		BaseURL:   cfg.Embedder.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		BatchSize: cfg.Embedder.BatchSize,
	})
	if err != nil {
		return nil, err
	}

	return NewWithEmbedder(ctx, cfg, embedder, logger)
}

// NewWithEmbedder builds the app around an existing embedder.
func NewWithEmbedder(ctx context.Context, cfg *config.Config, embedder types.Embedder, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	splitter, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:          cfg.Processor.ChunkSize,
		ChunkOverlap:       cfg.Processor.ChunkOverlap,
		Mode:               cfg.Processor.Mode,
		CollapseWhitespace: cfg.Processor.CollapseWhitespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize processor: %w", err)
	}

	a := &App{
		Fetcher: fetcher.NewWithConfig(fetcher.FetcherConfig{
			RateLimit:      cfg.Fetcher.RateLimit,
			Timeout:        time.Duration(cfg.Fetcher.TimeoutSeconds) * time.Second,
			MaxFiles:       cfg.Fetcher.MaxFiles,
			IgnorePatterns: cfg.Fetcher.IgnorePatterns,
			OnProgress: func(url string) {
				logger.Debug("fetched", zap.String("url", url))
			},
		}),
	}

	var builder types.IndexBuilder
	switch cfg.Index.Backend {
	case "pgvector":
		vs, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
			ConnString:  cfg.Index.DatabaseURL,
			TableName:   cfg.Index.TableName,
			VectorDim:   cfg.Index.VectorDim,
			BatchSize:   cfg.Index.BatchSize,
			SearchLimit: cfg.Index.TopK,
		}, embedder)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
		a.vectorStore = vs
		builder = vs
	default:
		builder = store.NewMemoryBuilder(embedder, cfg.Index.TopK)
	}

	chat := llm.ChatConfig{
		Provider:       cfg.LLM.Provider,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		PromptTemplate: cfg.LLM.PromptTemplate,
	}

	a.Session = session.New(session.Deps{
		Extractor:    extractor.New(),
		Splitter:     splitter,
		IndexBuilder: builder,
		EngineFactory: func() (types.AnswerEngine, error) {
			engine, err := llm.NewWithConfig(chat)
			if err != nil {
				return nil, err
			}
			logger.Info("chat engine ready",
				zap.String("provider", chat.Provider),
				zap.String("model", engine.Model()))
			return engine, nil
		},
		Clock: time.Now,
	}, session.Options{TopK: cfg.Index.TopK})

	logger.Info("session created",
		zap.String("session", a.Session.ID()),
		zap.String("index", cfg.Index.Backend),
		zap.Int("chunk_size", cfg.Processor.ChunkSize),
		zap.Int("chunk_overlap", cfg.Processor.ChunkOverlap))

	return a, nil
}

// Close releases the vector store, if one was opened.
func (a *App) Close() {
	if a.vectorStore != nil {
		a.vectorStore.Close()
		a.vectorStore = nil
	}
}

func validate(cfg *config.Config) error {
	errs := cfg.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
