package main

import (
	"strings"

	"toolbridge/internal/agent"
	anthropicmodel "toolbridge/internal/agent/anthropic"
	openaimodel "toolbridge/internal/agent/openai"
	"toolbridge/internal/config"
)

// newModelClient builds the provider client. Without a token it falls back to
// the echo client so the binary stays usable offline.
func newModelClient(cfg config.Config) (agent.ModelClient, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		log.Warnf("no API token configured for %s; using echo client", cfg.Provider)
		return agent.EchoClient{Prefix: "[echo] "}, nil
	}
	switch config.NormalizeProvider(cfg.Provider) {
	case config.ProviderAnthropic:
		return anthropicmodel.New(anthropicmodel.Options{
			Token:   cfg.Token,
			BaseURL: cfg.URL,
			Model:   cfg.Model,
		})
	default:
		return openaimodel.New(openaimodel.Options{
			APIKey:  cfg.Token,
			BaseURL: cfg.URL,
			Model:   cfg.Model,
		})
	}
}
