package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvProvider, EnvModel, EnvOpenAIBase, EnvOpenAIKey,
		EnvAnthropicBase, EnvAnthropicKey, EnvToolTimeoutSecs,
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Model != DefaultModel {
		t.Fatalf("Default().Model = %q, want %q", cfg.Model, DefaultModel)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Fatalf("Default().Provider = %q, want %q", cfg.Provider, ProviderOpenAI)
	}
	if cfg.ToolTimeout() != 30*time.Second {
		t.Fatalf("Default().ToolTimeout() = %v", cfg.ToolTimeout())
	}
}

func TestLoad_MissingFile_UsesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("cfg.Source = %q, want %q", cfg.Source, path)
	}
	if cfg.Model != DefaultModel {
		t.Fatalf("cfg.Model = %q, want %q", cfg.Model, DefaultModel)
	}
}

func TestLoad_AnthropicProviderGetsAnthropicModel(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvProvider, "anthropic")
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Fatalf("cfg.Provider = %q, want %q", cfg.Provider, ProviderAnthropic)
	}
	if cfg.Model != DefaultAnthropicModel {
		t.Fatalf("cfg.Model = %q, want %q", cfg.Model, DefaultAnthropicModel)
	}

	t.Setenv(EnvModel, "claude-custom")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "claude-custom" {
		t.Fatalf("cfg.Model = %q, want claude-custom", cfg.Model)
	}
}

func TestLoad_AnthropicProviderFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("provider = \"claude\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderAnthropic || cfg.Model != DefaultAnthropicModel {
		t.Fatalf("provider=%q model=%q", cfg.Provider, cfg.Model)
	}
}

func TestApplyKVOverrides_ProviderSwitchesDefaultModel(t *testing.T) {
	got := ApplyKVOverrides(Default(), []string{"provider=anthropic"})
	if got.Model != DefaultAnthropicModel {
		t.Fatalf("Model = %q, want %q", got.Model, DefaultAnthropicModel)
	}
	got = ApplyKVOverrides(Default(), []string{"model=my-model", "provider=anthropic"})
	if got.Model != "my-model" {
		t.Fatalf("Model = %q, want my-model", got.Model)
	}
}

func TestLoad_FromTOMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
url = "https://example.test/v1"
token = "file-token"
model = "file-model"
tool_timeout_seconds = 5
max_parallel_tools = 2
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "file-model" || cfg.Token != "file-token" || cfg.ToolTimeoutSecs != 5 || cfg.MaxParallelTools != 2 {
		t.Fatalf("unexpected config from file: %+v", cfg)
	}
	if cfg.Retries != Default().Retries {
		t.Fatalf("cfg.Retries = %d, want default %d", cfg.Retries, Default().Retries)
	}

	t.Setenv(EnvModel, "env-model")
	t.Setenv(EnvOpenAIBase, "https://env.test")
	t.Setenv(EnvOpenAIKey, "env-token")
	t.Setenv(EnvToolTimeoutSecs, "9")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "env-model" || cfg.URL != "https://env.test" || cfg.Token != "env-token" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.ToolTimeoutSecs != 9 {
		t.Fatalf("cfg.ToolTimeoutSecs = %d, want 9", cfg.ToolTimeoutSecs)
	}
}

func TestLoad_AnthropicReadsAnthropicEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvProvider, "claude")
	t.Setenv(EnvOpenAIKey, "openai-token")
	t.Setenv(EnvAnthropicKey, "anthropic-token")
	t.Setenv(EnvAnthropicBase, "https://anthropic.test")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Fatalf("cfg.Provider = %q, want %q", cfg.Provider, ProviderAnthropic)
	}
	if cfg.Token != "anthropic-token" || cfg.URL != "https://anthropic.test" {
		t.Fatalf("anthropic env not applied: %+v", cfg)
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("model = [unterminated"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("Load: expected error for malformed TOML")
	}
}

func TestApplyKVOverrides(t *testing.T) {
	got := ApplyKVOverrides(Default(), []string{
		"model=override-model",
		"provider=anthropic",
		"max_parallel_tools=0",
		"retries=0",
		"cancel_grace_ms=250",
		"garbage",
		"unknown=1",
	})
	if got.Model != "override-model" {
		t.Fatalf("Model = %q", got.Model)
	}
	if got.Provider != ProviderAnthropic {
		t.Fatalf("Provider = %q", got.Provider)
	}
	if got.MaxParallelTools != Default().MaxParallelTools {
		t.Fatalf("MaxParallelTools = %d, zero must be ignored", got.MaxParallelTools)
	}
	if got.Retries != 0 {
		t.Fatalf("Retries = %d, want 0", got.Retries)
	}
	if got.CancelGrace() != 250*time.Millisecond {
		t.Fatalf("CancelGrace() = %v", got.CancelGrace())
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Token = "secret"
	cfg.MaxRounds = 3
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Token != "secret" || loaded.MaxRounds != 3 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}
