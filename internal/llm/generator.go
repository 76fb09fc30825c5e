// Package llm adapts generation services to domain.Generator.
package llm

import (
	"context"

	"github.com/spherical/docprompt/internal/config"
	"github.com/spherical/docprompt/internal/domain"
)

// NewGenerator builds the generator selected by cfg. A missing credential
// is a ConfigError.
func NewGenerator(ctx context.Context, cfg *config.Config) (domain.Generator, error) {
	if cfg == nil {
		return nil, domain.ConfigError("no configuration", nil)
	}
	retry := NewRetryConfig(cfg.MaxRetries, cfg.RetryBackoff)

	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := NewGemini(ctx, GeminiOptions{
			APIKey:    cfg.APIKey(),
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Retry:     retry,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderOpenAI, "":
		key := cfg.APIKey()
		if key == "" {
			return nil, domain.ConfigError("missing OPENAI_API_KEY", nil)
		}
		return NewClient(ClientOptions{
			APIKey:    key,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Retry:     retry,
		}), nil
	default:
		return nil, domain.ConfigError("unknown provider "+cfg.Provider, nil)
	}
}
