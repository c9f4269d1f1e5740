package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	// DefaultModel mirrors the historical default of the OpenAI chat endpoint.
	DefaultModel = "gpt-3.5-turbo"
	// DefaultAnthropicModel is used when the provider is anthropic and no model is set.
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

// Environment variables recognised by Load. Each overrides the file value.
const (
	EnvProvider        = "TOOLBRIDGE_PROVIDER"
	EnvModel           = "MODEL"
	EnvOpenAIBase      = "OPENAI_API_BASE"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvAnthropicBase   = "ANTHROPIC_BASE_URL"
	EnvAnthropicKey    = "ANTHROPIC_API_KEY"
	EnvToolTimeoutSecs = "TOOLBRIDGE_TOOL_TIMEOUT_SECONDS"
)

// Config is the persisted config file schema.
type Config struct {
	Provider           string `toml:"provider"`
	URL                string `toml:"url"`
	Token              string `toml:"token"`
	Model              string `toml:"model"`
	LogLevel           string `toml:"log_level"`
	ToolTimeoutSecs    int    `toml:"tool_timeout_seconds"`
	MaxParallelTools   int    `toml:"max_parallel_tools"`
	CancelGraceMillis  int    `toml:"cancel_grace_ms"`
	RequestTimeoutSecs int    `toml:"request_timeout_seconds"`
	Retries            int    `toml:"retries"`
	MaxRounds          int    `toml:"max_rounds"`
	Source             string `toml:"-"`
}

func Default() Config {
	return Config{
		Provider:           ProviderOpenAI,
		Model:              DefaultModel,
		LogLevel:           "info",
		ToolTimeoutSecs:    30,
		MaxParallelTools:   4,
		CancelGraceMillis:  2000,
		RequestTimeoutSecs: 120,
		Retries:            2,
		MaxRounds:          8,
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".toolbridge", "config.toml")
}

// Load reads the TOML file at path (DefaultPath when empty) and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	cfg.Model = ""
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		cfg.Model = DefaultModel
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		cfg.Model = DefaultModel
		return cfg, err
	default:
		if err := toml.Unmarshal(content, &cfg); err != nil {
			cfg.Model = DefaultModelFor(cfg.Provider)
			return cfg, err
		}
	}
	cfg = applyEnv(cfg)
	cfg.Provider = NormalizeProvider(cfg.Provider)
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModelFor(cfg.Provider)
	}
	return cfg, nil
}

func applyEnv(cfg Config) Config {
	if env := strings.TrimSpace(os.Getenv(EnvProvider)); env != "" {
		cfg.Provider = env
	}
	if env := strings.TrimSpace(os.Getenv(EnvModel)); env != "" {
		cfg.Model = env
	}
	baseEnv, keyEnv := EnvOpenAIBase, EnvOpenAIKey
	if NormalizeProvider(cfg.Provider) == ProviderAnthropic {
		baseEnv, keyEnv = EnvAnthropicBase, EnvAnthropicKey
	}
	if env := strings.TrimSpace(os.Getenv(baseEnv)); env != "" {
		cfg.URL = env
	}
	if env := strings.TrimSpace(os.Getenv(keyEnv)); env != "" {
		cfg.Token = env
	}
	if env := strings.TrimSpace(os.Getenv(EnvToolTimeoutSecs)); env != "" {
		cfg = ApplyKVOverrides(cfg, []string{"tool_timeout_seconds=" + env})
	}
	return cfg
}

// DefaultModelFor returns the model used when neither the file nor the
// environment names one.
func DefaultModelFor(provider string) string {
	if NormalizeProvider(provider) == ProviderAnthropic {
		return DefaultAnthropicModel
	}
	return DefaultModel
}

// NormalizeProvider folds aliases and falls back to openai.
func NormalizeProvider(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "anthropic", "claude":
		return ProviderAnthropic
	default:
		return ProviderOpenAI
	}
}

func (c Config) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSecs) * time.Second
}

func (c Config) CancelGrace() time.Duration {
	return time.Duration(c.CancelGraceMillis) * time.Millisecond
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}
