package review

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	internalerrors "logtriage/internal/errors"
)

// AnthropicClient wraps the Anthropic API client
type AnthropicClient struct {
	client     *anthropic.Client
	model      string
	maxTokens  int
	maxRetries int
}

// NewAnthropicClient creates a new Anthropic client.
// timeoutSeconds, maxTokens and maxRetries are configurable.
func NewAnthropicClient(apiKey, model, proxyURL string, timeoutSeconds, maxTokens, maxRetries int) (*AnthropicClient, error) {
	var httpClient *http.Client
	timeout := time.Duration(timeoutSeconds) * time.Second

	// Configure proxy if provided
	if proxyURL != "" {
		proxyURLParsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}

		// Validate proxy URL scheme for security
		if proxyURLParsed.Scheme != "http" && proxyURLParsed.Scheme != "https" {
			return nil, fmt.Errorf("proxy URL must use http or https scheme, got: %s", proxyURLParsed.Scheme)
		}

		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURLParsed),
			},
			Timeout: timeout,
		}
	} else {
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	client := anthropic.NewClient(
		apiKey,
		anthropic.WithHTTPClient(httpClient),
	)

	return &AnthropicClient{
		client:     client,
		model:      model,
		maxTokens:  maxTokens,
		maxRetries: maxRetries,
	}, nil
}

// Review sends one chunk of unclassified log lines for triage.
func (c *AnthropicClient) Review(ctx context.Context, systemPrompt, userPrompt string) (*Response, *Stats, error) {
	startTime := time.Now()

	response, err := retryWithBackoff(ctx, c.maxRetries, func() (anthropic.MessagesResponse, error) {
		return c.callAPI(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		return nil, nil, err
	}

	// Extract response content
	if len(response.Content) == 0 {
		return nil, nil, fmt.Errorf("empty response from Anthropic")
	}

	responseText := ""
	for _, content := range response.Content {
		if content.Type == "text" && content.Text != nil {
			responseText += *content.Text
		}
	}

	parsed, err := ParseResponse(responseText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse review response: %w", err)
	}

	stats := c.calculateStats(response, time.Since(startTime).Seconds())

	return parsed, stats, nil
}

// callAPI makes the actual API call to Anthropic
func (c *AnthropicClient) callAPI(ctx context.Context, systemPrompt, userPrompt string) (anthropic.MessagesResponse, error) {
	request := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(userPrompt),
				},
			},
		},
		System:    systemPrompt,
		MaxTokens: c.maxTokens,
	}

	response, err := c.client.CreateMessages(ctx, request)
	if err != nil {
		// Sanitize error to prevent credentials from appearing in error messages
		return anthropic.MessagesResponse{}, internalerrors.Wrapf(err, "API call failed")
	}

	return response, nil
}

// calculateStats calculates cost and token statistics
func (c *AnthropicClient) calculateStats(response anthropic.MessagesResponse, durationSeconds float64) *Stats {
	inputTokens := response.Usage.InputTokens
	outputTokens := response.Usage.OutputTokens

	// Cache tokens (may be 0 if not using cache)
	cacheCreationTokens := response.Usage.CacheCreationInputTokens
	cacheReadTokens := response.Usage.CacheReadInputTokens

	// Calculate costs (Claude Sonnet 4.5 pricing)
	// Input: $3/MTok, Output: $15/MTok
	// Cache write: $3.75/MTok, Cache read: $0.30/MTok
	inputCost := float64(inputTokens) / 1000000 * 3.0
	outputCost := float64(outputTokens) / 1000000 * 15.0
	cacheWriteCost := float64(cacheCreationTokens) / 1000000 * 3.75
	cacheReadCost := float64(cacheReadTokens) / 1000000 * 0.30

	totalCost := inputCost + outputCost + cacheWriteCost + cacheReadCost

	return &Stats{
		Provider:            "Anthropic",
		Model:               c.model,
		InputTokens:         inputTokens,
		OutputTokens:        outputTokens,
		CacheCreationTokens: cacheCreationTokens,
		CacheReadTokens:     cacheReadTokens,
		CostUSD:             totalCost,
		DurationSeconds:     durationSeconds,
	}
}

// GetModelInfo returns information about the configured model
func (c *AnthropicClient) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model":         c.model,
		"provider":      "Anthropic",
		"max_tokens":    c.maxTokens,
		"context_limit": 200000,
	}
}

// GetProviderName returns the name of the provider
func (c *AnthropicClient) GetProviderName() string {
	return "Anthropic"
}

// Ensure AnthropicClient implements Provider interface
var _ Provider = (*AnthropicClient)(nil)
