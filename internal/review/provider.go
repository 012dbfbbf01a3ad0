package review

import "context"

// Provider defines the interface for review backends (Anthropic, Ollama, etc.)
type Provider interface {
	// Review submits one redacted chunk of log lines and returns the
	// structured findings
	Review(ctx context.Context, systemPrompt, userPrompt string) (*Response, *Stats, error)

	// GetModelInfo returns information about the configured model
	GetModelInfo() map[string]interface{}

	// GetProviderName returns the name of the provider (e.g., "Anthropic", "Ollama")
	GetProviderName() string
}

// Stats holds statistics about one backend call
type Stats struct {
	Provider            string
	Model               string
	InputTokens         int
	OutputTokens        int
	CacheCreationTokens int
	CacheReadTokens     int
	CostUSD             float64
	DurationSeconds     float64
}

// ProviderType represents the type of review backend
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
	ProviderLMStudio  ProviderType = "lmstudio"
)

// ValidProviderTypes returns a list of valid provider types
func ValidProviderTypes() []ProviderType {
	return []ProviderType{ProviderAnthropic, ProviderOllama, ProviderLMStudio}
}

// IsValidProviderType checks if the given provider type is valid
func IsValidProviderType(pt string) bool {
	for _, valid := range ValidProviderTypes() {
		if string(valid) == pt {
			return true
		}
	}
	return false
}
