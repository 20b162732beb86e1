package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EURI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("MEDIASSIST_MODEL", "")
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestLoadConfig_OnlySetFlagsOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
llm:
  model: "gpt-4.1-mini"
  temperature: 0.3
processor:
  chunk_size: 500
  chunk_overlap: 50
`)

	fs, flags := newFlagSet()
	require.NoError(t, fs.Parse([]string{"-config", path, "-temperature", "0", "-top-k", "5", "visit.pdf"}))

	cfg, err := loadConfig(fs, flags)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1-mini", cfg.LLM.Model)
	assert.Equal(t, 0.0, cfg.LLM.Temperature)
	assert.Equal(t, 500, cfg.Processor.ChunkSize)
	assert.Equal(t, 50, cfg.Processor.ChunkOverlap)
	assert.Equal(t, 5, cfg.Index.TopK)
	assert.Equal(t, []string{"visit.pdf"}, fs.Args())
}

func TestRealMain_ExitCodes(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"-h"}, 0},
		{"unknown flag", []string{"-nope"}, 2},
		{"missing config file", []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, 1},
		{"invalid config", []string{"-config", writeConfig(t, "log:\n  level: info\n"), "-chunk-size", "100", "-chunk-overlap", "100"}, 1},
		{"bad log level", []string{"-config", writeConfig(t, "log:\n  level: loud\n")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, realMain(tt.args))
		})
	}
}
