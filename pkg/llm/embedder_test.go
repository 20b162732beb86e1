package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/mediassist/internal/types"
	"github.com/xhad/mediassist/pkg/llm"
)

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   "nomic-embed-text:latest",
		BaseURL: "http://localhost:11434",
	})
	require.NoError(t, err)
	assert.NotNil(t, emb)

	emb, err = llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: llm.ProviderOpenAI, APIKey: "test-key"})
	require.NoError(t, err)
	assert.NotNil(t, emb)
}

func TestNewEmbedderWithConfig_Errors(t *testing.T) {
	_, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: llm.ProviderOpenAI})
	assert.ErrorIs(t, err, types.ErrAuth)

	_, err = llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "word2vec"})
	assert.Error(t, err)
}
