package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Sources.Feeds)
	assert.Equal(t, "ollama", cfg.Generation.Provider)
	assert.Equal(t, "llama3.1", cfg.Generation.Model)
	assert.Equal(t, 120*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "csebuetnlp/mT5_multilingual_XLSum", cfg.Summarization.Model)
	assert.Equal(t, 6, cfg.Summarization.MinTokens)
	assert.Equal(t, 32, cfg.Summarization.MaxTokens)
	assert.Equal(t, "ru", cfg.Keywords.Language)
	assert.Equal(t, 6, cfg.Keywords.Count)
	assert.InDelta(t, 0.8, cfg.Quality.Threshold, 1e-9)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
generation:
  provider: openai
  model: gpt-4o
  timeout: 30s
keywords:
  language: en
server:
  port: 9000
`)
	cfg, err := parse(data)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Generation.Provider)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "en", cfg.Keywords.Language)
	assert.Equal(t, 9000, cfg.Server.Port)
	// Defaults should still be set for unspecified fields
	assert.Equal(t, "http://localhost:11434", cfg.Generation.OllamaURL)
	assert.Equal(t, 6, cfg.Keywords.Count)
}

func TestParseRejectsOutOfRangeValues(t *testing.T) {
	cases := map[string]string{
		"temperature":  "generation:\n  temperature: 1.5\n",
		"count":        "keywords:\n  count: 0\n",
		"threshold":    "quality:\n  threshold: -0.1\n",
		"timeout":      "generation:\n  timeout: 0s\n",
		"title bounds": "summarization:\n  min_tokens: 40\n  max_tokens: 10\n",
	}
	for name, yml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parse([]byte(yml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, DefaultConfigYAML, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Sources.Feeds)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Generation, cfg.Generation)
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	_, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	assert.NotEmpty(t, cfg.GetDataDir())

	cfg.Output.DataDir = "/custom/path"
	assert.Equal(t, "/custom/path", cfg.GetDataDir())
}
