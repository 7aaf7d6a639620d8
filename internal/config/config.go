package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tabsort/internal/domain"
)

// Provider selects which topic-assignment path a sort run takes.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderRemote Provider = "remote"
)

// ThresholdConfig holds the tuning constants of the local pipeline.
type ThresholdConfig struct {
	Similarity            float64 `yaml:"similarity" validate:"gte=-1,lte=1"`
	GroupSimilarity       float64 `yaml:"group_similarity" validate:"gte=-1"`
	ExistingGroupBoost    float64 `yaml:"existing_group_boost" validate:"gte=0"`
	FuzzyMatch            float64 `yaml:"fuzzy_match" validate:"gte=0,lte=1"`
	ConsolidationDistance int     `yaml:"consolidation_distance" validate:"gte=0"`
}

// HugotEmbedderConfig configures the on-device feature-extraction model.
type HugotEmbedderConfig struct {
	ModelPath    string `yaml:"model_path"`
	ModelName    string `yaml:"model_name"`
	OnnxFilename string `yaml:"onnx_filename"`
	CacheDir     string `yaml:"cache_dir"`
}

// OllamaEmbedderConfig configures a local Ollama embedding endpoint.
type OllamaEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type         string                `yaml:"type" validate:"oneof=hugot ollama openai tfidf"`
	BatchSize    int                   `yaml:"batch_size" validate:"gt=0"`
	CacheTTLSecs int                   `yaml:"cache_ttl_secs" validate:"gte=0"`
	Hugot        *HugotEmbedderConfig  `yaml:"hugot,omitempty"`
	Ollama       *OllamaEmbedderConfig `yaml:"ollama,omitempty"`
	OpenAI       *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig configures the text-generation model used to name clusters.
// An empty Model disables generation; clusters are then named from keywords.
type GeneratorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// RemoteConfig configures the remote generative-language classifier.
type RemoteConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKeyEnv     string  `yaml:"api_key_env"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	TimeoutSecs   int     `yaml:"timeout_secs"`
	FallbackLocal bool    `yaml:"fallback_local"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Console    bool   `yaml:"console"`
}

// FilterConfig narrows the tabs a sort run considers.
type FilterConfig struct {
	// ExcludeURLs are glob patterns; matching tabs are never sorted.
	ExcludeURLs []string `yaml:"exclude_urls,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Provider   Provider        `yaml:"provider" validate:"oneof=local remote"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Filter     FilterConfig    `yaml:"filter"`
	Embedder   EmbedderConfig  `yaml:"embedder"`
	Generator  GeneratorConfig `yaml:"generator"`
	Remote     RemoteConfig    `yaml:"remote"`
	Logging    LoggingConfig   `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./tabsort.yaml first, then ~/.config/tabsort/config.yaml.
// If neither exists, it writes defaults to ~/.config/tabsort/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "tabsort.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath returns ~/.config/tabsort/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tabsort", "config.yaml"), nil
}

var validate = validator.New()

// Validate rejects configurations no sort run could use.
func (c *AppConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %v fails %s", fe.Namespace(), fe.Value(), fieldRule(fe)))
	}
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(msgs, "; "))
}

func fieldRule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// RemoteAPIKey returns the remote classifier credential from the environment.
func (c *AppConfig) RemoteAPIKey() string { return os.Getenv(c.Remote.APIKeyEnv) }

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Provider: ProviderLocal,
		Thresholds: ThresholdConfig{
			Similarity:            0.45,
			GroupSimilarity:       0.65,
			ExistingGroupBoost:    0.1,
			FuzzyMatch:            0.7,
			ConsolidationDistance: 2,
		},
		Embedder: EmbedderConfig{Type: "hugot", BatchSize: 5, CacheTTLSecs: 600},
		Generator: GeneratorConfig{
			MaxTokens:   8,
			Temperature: 0.7,
		},
		Remote: RemoteConfig{Temperature: 0.1},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderLocal
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hugot"
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 5
	}
	switch cfg.Embedder.Type {
	case "hugot":
		if cfg.Embedder.Hugot == nil {
			cfg.Embedder.Hugot = &HugotEmbedderConfig{}
		}
		if cfg.Embedder.Hugot.ModelName == "" && cfg.Embedder.Hugot.ModelPath == "" {
			cfg.Embedder.Hugot.ModelName = "sentence-transformers/all-MiniLM-L6-v2"
		}
		if cfg.Embedder.Hugot.CacheDir == "" {
			if home, err := os.UserHomeDir(); err == nil {
				cfg.Embedder.Hugot.CacheDir = filepath.Join(home, ".cache", "tabsort", "models")
			}
		}
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaEmbedderConfig{}
		}
		if cfg.Embedder.Ollama.BaseURL == "" {
			cfg.Embedder.Ollama.BaseURL = "http://localhost:11434"
		}
		if cfg.Embedder.Ollama.Model == "" {
			cfg.Embedder.Ollama.Model = "all-minilm"
		}
		if cfg.Embedder.Ollama.TimeoutSecs == 0 {
			cfg.Embedder.Ollama.TimeoutSecs = 60
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "TABSORT_GENERATOR_API_KEY"
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 8
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 30
	}
	if cfg.Remote.BaseURL == "" {
		cfg.Remote.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Remote.APIKeyEnv == "" {
		cfg.Remote.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Remote.Model == "" {
		cfg.Remote.Model = "gemini-2.0-flash"
	}
	if cfg.Remote.TimeoutSecs == 0 {
		cfg.Remote.TimeoutSecs = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 5
	}
}
