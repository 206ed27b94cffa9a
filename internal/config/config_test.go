package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `llm:
  provider: openai
  base_url: https://openrouter.ai/api
  key: Bearer sk-test
  model: gpt-4o-mini
clean:
  chunk_size: 100
audit:
  dsn: postgres://localhost:5432/datacleaner
  debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 100, cfg.Clean.ChunkSize)
	assert.True(t, cfg.Audit.Debug)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "deepseek-r1", cfg.LLM.Model)
	assert.Equal(t, 200, cfg.Clean.ChunkSize)
}
