package config

import (
	"strconv"
	"strings"
)

// ApplyKVOverrides applies free-form -c key=value overrides. Unknown keys and
// unparsable numbers are ignored.
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	if len(overrides) == 0 {
		return cfg
	}
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "provider":
			prev := cfg.Provider
			cfg.Provider = NormalizeProvider(val)
			if cfg.Model == "" || cfg.Model == DefaultModelFor(prev) {
				cfg.Model = DefaultModelFor(cfg.Provider)
			}
		case "url", "base_url":
			cfg.URL = val
		case "token", "api_key":
			cfg.Token = val
		case "model":
			cfg.Model = val
		case "log_level":
			cfg.LogLevel = val
		case "tool_timeout_seconds", "tool_timeout":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				cfg.ToolTimeoutSecs = n
			}
		case "max_parallel_tools":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				cfg.MaxParallelTools = n
			}
		case "cancel_grace_ms":
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				cfg.CancelGraceMillis = n
			}
		case "request_timeout_seconds", "timeout":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				cfg.RequestTimeoutSecs = n
			}
		case "retries":
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				cfg.Retries = n
			}
		case "max_rounds":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				cfg.MaxRounds = n
			}
		}
	}
	return cfg
}
