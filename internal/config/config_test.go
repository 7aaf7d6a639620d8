package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsort/internal/domain"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, cfg.Provider)
	assert.Equal(t, 0.45, cfg.Thresholds.Similarity)
	assert.Equal(t, 0.65, cfg.Thresholds.GroupSimilarity)
	assert.Equal(t, 0.1, cfg.Thresholds.ExistingGroupBoost)
	assert.Equal(t, 0.7, cfg.Thresholds.FuzzyMatch)
	assert.Equal(t, 2, cfg.Thresholds.ConsolidationDistance)
	assert.Equal(t, 5, cfg.Embedder.BatchSize)
	assert.Equal(t, "gemini-2.0-flash", cfg.Remote.Model)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesAndFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabsort.yaml")
	data := []byte(`provider: remote
thresholds:
  similarity: 0.5
embedder:
  type: ollama
remote:
  api_key_env: MY_KEY
  fallback_local: true
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderRemote, cfg.Provider)
	assert.Equal(t, 0.5, cfg.Thresholds.Similarity)
	assert.Equal(t, 0.65, cfg.Thresholds.GroupSimilarity)
	require.NotNil(t, cfg.Embedder.Ollama)
	assert.Equal(t, "http://localhost:11434", cfg.Embedder.Ollama.BaseURL)
	assert.Equal(t, "all-minilm", cfg.Embedder.Ollama.Model)
	assert.Equal(t, "MY_KEY", cfg.Remote.APIKeyEnv)
	assert.True(t, cfg.Remote.FallbackLocal)

	t.Setenv("MY_KEY", "secret")
	assert.Equal(t, "secret", cfg.RemoteAPIKey())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Provider = ProviderRemote
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Provider, loaded.Provider)
	assert.Equal(t, cfg.Thresholds, loaded.Thresholds)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Provider = "gemini"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	cfg = Default()
	cfg.Embedder.Type = "word2vec"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Embedder.BatchSize = -1
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BatchSize")

	cfg = Default()
	cfg.Thresholds.ConsolidationDistance = -1
	cfg.Thresholds.FuzzyMatch = 1.5
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ConsolidationDistance")
	assert.Contains(t, err.Error(), "FuzzyMatch")
}

func TestLoadFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabsort.yaml")
	data := []byte("filter:\n  exclude_urls:\n    - \"*://mail.*\"\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"*://mail.*"}, cfg.Filter.ExcludeURLs)
	require.NoError(t, cfg.Validate())
}
