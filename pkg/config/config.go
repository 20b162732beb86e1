package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider       string  `yaml:"provider"`
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
		PromptTemplate string  `yaml:"prompt_template"`
	} `yaml:"llm"`

	Embedder struct {
		Provider  string `yaml:"provider"`
		BaseURL   string `yaml:"base_url"`
		Model     string `yaml:"model"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"embedder"`

	Index struct {
		Backend     string `yaml:"backend"`
		TopK        int    `yaml:"top_k"`
		DatabaseURL string `yaml:"database_url"`
		TableName   string `yaml:"table_name"`
		VectorDim   int    `yaml:"vector_dim"`
		BatchSize   int    `yaml:"batch_size"`
	} `yaml:"index"`

	Processor struct {
		ChunkSize          int    `yaml:"chunk_size"`
		ChunkOverlap       int    `yaml:"chunk_overlap"`
		Mode               string `yaml:"mode"`
		CollapseWhitespace bool   `yaml:"collapse_whitespace"`
	} `yaml:"processor"`

	Fetcher struct {
		RateLimit      float64  `yaml:"rate_limit"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		MaxFiles       int      `yaml:"max_files"`
		IgnorePatterns []string `yaml:"ignore_patterns"`
	} `yaml:"fetcher"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level   string `yaml:"level"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/mediassist/config.yaml"),
			"/etc/mediassist/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(config)
	applyDefaults(config)

	return config, nil
}

func getDefaultConfig() (*Config, error) {
	config := defaultConfig()
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

// defaultConfig holds the values used for keys missing from the file. The
// file is decoded on top of it, so an explicit zero in YAML is kept.
func defaultConfig() *Config {
	config := &Config{}

	config.LLM.Provider = "openai"
	config.LLM.Model = "gpt-4.1-nano"
	config.LLM.MaxTokens = 1024
	config.LLM.Temperature = 0.7

	config.Embedder.Provider = "ollama"
	config.Embedder.Model = "nomic-embed-text:latest"
	config.Embedder.BaseURL = "http://localhost:11434"
	config.Embedder.BatchSize = 64

	config.Index.Backend = "memory"
	config.Index.TopK = 3
	config.Index.TableName = "mediassist_chunks"
	config.Index.VectorDim = 768
	config.Index.BatchSize = 100

	config.Processor.ChunkSize = 1000
	config.Processor.ChunkOverlap = 200
	config.Processor.Mode = "window"

	config.Fetcher.RateLimit = 2.0
	config.Fetcher.TimeoutSeconds = 30
	config.Fetcher.MaxFiles = 20

	config.Server.Addr = ":8080"
	config.Log.Level = "info"

	return config
}

// applyDefaults fills values that depend on other settings, and names left
// blank in the file.
func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4.1-nano"
	}
	if config.LLM.BaseURL == "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.BaseURL = "http://localhost:11434"
		} else {
			config.LLM.BaseURL = "https://api.euron.one/api/v1/euri"
		}
	}

	if config.Embedder.Provider == "" {
		config.Embedder.Provider = "ollama"
	}
	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = "http://localhost:11434"
	}

	if config.Index.Backend == "" {
		config.Index.Backend = "memory"
	}
	if config.Index.TableName == "" {
		config.Index.TableName = "mediassist_chunks"
	}

	if config.Processor.Mode == "" {
		config.Processor.Mode = "window"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("EURI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if model := os.Getenv("MEDIASSIST_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedder.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Index.DatabaseURL = dbURL
	}
}
