package llm

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/mediassist/internal/types"
)

// EmbedderConfig selects the embedding model used for chunks and queries.
type EmbedderConfig struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	BatchSize int
}

func NewEmbedderWithConfig(config EmbedderConfig) (*embeddings.EmbedderImpl, error) {
	if config.Provider == "" {
		config.Provider = ProviderOllama
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 64
	}

	var client embeddings.EmbedderClient
	switch config.Provider {
	case ProviderOllama:
		if config.Model == "" {
			config.Model = "nomic-embed-text:latest"
		}
		if config.BaseURL == "" {
			config.BaseURL = DefaultOllamaURL
		}
		llm, err := ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		client = llm
	case ProviderOpenAI:
		if strings.TrimSpace(config.APIKey) == "" {
			return nil, fmt.Errorf("failed to initialize embedder: %w", types.ErrAuth)
		}
		if config.Model == "" {
			config.Model = "text-embedding-3-small"
		}
		if config.BaseURL == "" {
			config.BaseURL = DefaultEuriURL
		}
		llm, err := openai.New(
			openai.WithToken(config.APIKey),
			openai.WithBaseURL(config.BaseURL),
			openai.WithEmbeddingModel(config.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		client = llm
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", config.Provider)
	}

	return embeddings.NewEmbedder(client, embeddings.WithBatchSize(config.BatchSize))
}
