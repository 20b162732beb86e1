package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
	"github.com/xhad/mediassist/internal/models"
	"github.com/xhad/mediassist/internal/types"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	DefaultEuriURL   = "https://api.euron.one/api/v1/euri"
	DefaultOllamaURL = "http://localhost:11434"
)

const DefaultPromptTemplate = `You are MediAssist, a helpful AI assistant specialized in medical documents.
Use the given content to respond clearly and accurately.
If the answer is not present, politely mention that.

Document Data:
{{.context}}

Question: {{.question}}

Reply:`

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider       string
	Model          string
	Temperature    float64
	MaxTokens      int
	BaseURL        string
	APIKey         string
	PromptTemplate string
}

// ChatEngine answers questions from retrieved context through a hosted model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
	prompt prompts.PromptTemplate
}

// NewWithConfig connects to the configured provider. The openai provider
// needs a credential; without one the engine cannot be created.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config = withDefaults(config)

	var (
		model llms.Model
		err   error
	)
	switch config.Provider {
	case ProviderOpenAI:
		if strings.TrimSpace(config.APIKey) == "" {
			return nil, fmt.Errorf("failed to initialize LLM: %w", types.ErrAuth)
		}
		model, err = openai.New(
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
			openai.WithBaseURL(config.BaseURL),
		)
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(model, config)
}

// NewWithModel wraps an already constructed model.
func NewWithModel(model llms.Model, config ChatConfig) (*ChatEngine, error) {
	config = withDefaults(config)

	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	}

	prompt := prompts.NewPromptTemplate(config.PromptTemplate, []string{"context", "question"})
	if _, err := prompt.Format(map[string]any{"context": "", "question": ""}); err != nil {
		return nil, fmt.Errorf("invalid prompt template: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    model,
		prompt: prompt,
	}, nil
}

func withDefaults(config ChatConfig) ChatConfig {
	if config.Provider == "" {
		config.Provider = ProviderOpenAI
	}
	if config.Model == "" {
		if config.Provider == ProviderOllama {
			config.Model = "mistral"
		} else {
			config.Model = "gpt-4.1-nano"
		}
	}
	if config.BaseURL == "" {
		if config.Provider == ProviderOllama {
			config.BaseURL = DefaultOllamaURL
		} else {
			config.BaseURL = DefaultEuriURL
		}
	}
	if config.PromptTemplate == "" {
		config.PromptTemplate = DefaultPromptTemplate
	}
	return config
}

func (ce *ChatEngine) Model() string {
	return ce.config.Model
}

// BuildPrompt fills the template with the retrieved chunks and the question.
// Earlier turns of the conversation are never included.
func (ce *ChatEngine) BuildPrompt(chunks []models.RetrievedChunk, question string) (string, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	prompt, err := ce.prompt.Format(map[string]any{
		"context":  strings.Join(texts, "\n\n"),
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format prompt: %w", err)
	}
	return prompt, nil
}

// Generate sends the prompt as a single message and returns the first choice.
func (ce *ChatEngine) Generate(ctx context.Context, prompt string) (models.GeneratedAnswer, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	options := []llms.CallOption{llms.WithTemperature(ce.config.Temperature)}
	if ce.config.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(ce.config.MaxTokens))
	}

	response, err := ce.llm.GenerateContent(ctx, content, options...)
	if err != nil {
		return models.GeneratedAnswer{}, fmt.Errorf("chat error: %w", classify(err))
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil ||
		strings.TrimSpace(response.Choices[0].Content) == "" {
		return models.GeneratedAnswer{}, fmt.Errorf("chat error: empty reply: %w", types.ErrContent)
	}

	return models.GeneratedAnswer{
		Text:  response.Choices[0].Content,
		Model: ce.config.Model,
	}, nil
}

func (ce *ChatEngine) Answer(ctx context.Context, question string, chunks []models.RetrievedChunk) (models.GeneratedAnswer, error) {
	prompt, err := ce.BuildPrompt(chunks, question)
	if err != nil {
		return models.GeneratedAnswer{}, err
	}
	return ce.Generate(ctx, prompt)
}
