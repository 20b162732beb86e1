package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "openai"
  base_url: "https://api.example.com/v1"
  api_key: "file-key"
  model: "gpt-4.1-mini"
  max_tokens: 1000
  temperature: 0.5

embedder:
  provider: "ollama"
  model: "all-minilm"

index:
  backend: "pgvector"
  top_k: 4
  database_url: "postgres://localhost:5432/test"
  vector_dim: 384

processor:
  chunk_size: 500
  chunk_overlap: 100
  mode: "recursive"

fetcher:
  rate_limit: 1.5
  ignore_patterns:
    - "/private/"

server:
  addr: ":9090"

log:
  level: "debug"
  console: true
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	t.Setenv("EURI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("MEDIASSIST_MODEL", "")

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", config.LLM.BaseURL)
	assert.Equal(t, "file-key", config.LLM.APIKey)
	assert.Equal(t, "gpt-4.1-mini", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "all-minilm", config.Embedder.Model)
	assert.Equal(t, "http://localhost:11434", config.Embedder.BaseURL)
	assert.Equal(t, "pgvector", config.Index.Backend)
	assert.Equal(t, 4, config.Index.TopK)
	assert.Equal(t, 384, config.Index.VectorDim)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, "recursive", config.Processor.Mode)
	assert.Equal(t, []string{"/private/"}, config.Fetcher.IgnorePatterns)
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.True(t, config.Log.Console)
	assert.Empty(t, config.Validate())
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("EURI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("MEDIASSIST_MODEL", "")

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4.1-nano", config.LLM.Model)
	assert.Equal(t, 0.7, config.LLM.Temperature)
	assert.Equal(t, "memory", config.Index.Backend)
	assert.Equal(t, 3, config.Index.TopK)
	assert.Equal(t, 1000, config.Processor.ChunkSize)
	assert.Equal(t, 200, config.Processor.ChunkOverlap)
	assert.Equal(t, "window", config.Processor.Mode)
	assert.Empty(t, config.Validate())
}

func TestLoadConfig_ExplicitZeros(t *testing.T) {
	t.Setenv("EURI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("MEDIASSIST_MODEL", "")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configData := `
llm:
  temperature: 0
processor:
  chunk_size: 100
  chunk_overlap: 0
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 0.0, config.LLM.Temperature)
	assert.Equal(t, 100, config.Processor.ChunkSize)
	assert.Equal(t, 0, config.Processor.ChunkOverlap)
	// Keys absent from the file still get their defaults.
	assert.Equal(t, 1024, config.LLM.MaxTokens)
	assert.Equal(t, 3, config.Index.TopK)
	assert.Equal(t, "window", config.Processor.Mode)
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		c := defaultConfig()
		applyDefaults(c)
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "bad llm settings",
			mutate: func(c *Config) {
				c.LLM.BaseURL = "invalid-url"
				c.LLM.MaxTokens = 50000
				c.LLM.Temperature = 3.0
			},
			fields: []string{"llm.base_url", "llm.max_tokens", "llm.temperature"},
		},
		{
			name: "overlap not below size",
			mutate: func(c *Config) {
				c.Processor.ChunkSize = 100
				c.Processor.ChunkOverlap = 100
			},
			fields: []string{"processor.chunk_overlap"},
		},
		{
			name: "pgvector without database",
			mutate: func(c *Config) {
				c.Index.Backend = "pgvector"
				c.Index.TopK = -1
			},
			fields: []string{"index.database_url", "index.top_k"},
		},
		{
			name: "unknown names",
			mutate: func(c *Config) {
				c.LLM.Provider = "bard"
				c.Embedder.Provider = "word2vec"
				c.Index.Backend = "faiss"
				c.Processor.Mode = "semantic"
			},
			fields: []string{"llm.provider", "embedder.provider", "index.backend", "processor.mode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)

			errors := c.Validate()
			require.Len(t, errors, len(tt.fields))
			for i, field := range tt.fields {
				assert.Equal(t, field, errors[i].Field)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("EURI_API_KEY", "env-key")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("MEDIASSIST_MODEL", "gpt-4.1")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "env-key", config.LLM.APIKey)
	assert.Equal(t, "gpt-4.1", config.LLM.Model)
	assert.Equal(t, "http://env-ollama:11434", config.Embedder.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Index.DatabaseURL)
}
