package triage

import (
	"fmt"

	"logtriage/internal/config"
	"logtriage/internal/review"
)

// NewProvider builds the review backend the configuration selects.
// Credentials are checked here so a misconfigured provider fails once,
// up front, never mid-review.
func NewProvider(cfg config.ReviewConfig) (review.Provider, error) {
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}

	switch {
	case cfg.IsOllama():
		return review.NewOllamaClient(review.OllamaConfig{
			BaseURL:        cfg.OllamaURL,
			Model:          cfg.OllamaModel,
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxTokens:      cfg.MaxTokens,
			MaxRetries:     cfg.MaxRetries,
		})
	case cfg.IsLMStudio():
		return review.NewLMStudioClient(review.LMStudioConfig{
			BaseURL:        cfg.LMStudioURL,
			Model:          cfg.LMStudioModel,
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxTokens:      cfg.MaxTokens,
			MaxRetries:     cfg.MaxRetries,
		})
	case cfg.IsAnthropic():
		return review.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel,
			cfg.ProxyURL(), cfg.TimeoutSeconds, cfg.MaxTokens, cfg.MaxRetries)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
