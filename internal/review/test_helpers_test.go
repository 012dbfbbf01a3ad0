package review

import (
	"encoding/json"
	"net/http"
	"testing"
)

// findingsResponseJSON is the standard review result served by mock
// backends in the happy-path tests: one medium finding at lines 12 and 14.
const findingsResponseJSON = `{
	"findings": [
		{
			"line_numbers": [12, 14],
			"severity_guess": "medium",
			"confidence": 0.8,
			"title": "Repeated retries followed by silence",
			"rationale": "Three retries with growing latency and no completion afterwards.",
			"recommendation": "Check downstream connectivity around these timestamps."
		}
	]
}`

// verifyOpenAIChatRequest validates an OpenAI-style chat completion request.
// It decodes the request body and verifies the structure is well-formed.
func verifyOpenAIChatRequest(t *testing.T, r *http.Request, w http.ResponseWriter) *openAIChatRequest {
	t.Helper()

	var req openAIChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Errorf("failed to decode request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return nil
	}

	if req.Model == "" {
		t.Error("model is empty")
	}
	if len(req.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" {
		t.Errorf("first message should be system, got %s", req.Messages[0].Role)
	}
	if req.Messages[1].Role != "user" {
		t.Errorf("second message should be user, got %s", req.Messages[1].Role)
	}

	return &req
}

// verifyOllamaChatRequest validates an Ollama chat request.
// It decodes the request body and verifies the structure is well-formed.
func verifyOllamaChatRequest(t *testing.T, r *http.Request, w http.ResponseWriter) *ollamaChatRequest {
	t.Helper()

	var req ollamaChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Errorf("failed to decode request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return nil
	}

	if req.Model == "" {
		t.Error("model is empty")
	}
	if len(req.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" {
		t.Errorf("first message should be system, got %s", req.Messages[0].Role)
	}
	if req.Messages[1].Role != "user" {
		t.Errorf("second message should be user, got %s", req.Messages[1].Role)
	}

	return &req
}

// verifyFindingsResult checks that a parsed review result carries the
// standard mock finding served by findingsResponseJSON.
func verifyFindingsResult(t *testing.T, resp *Response) {
	t.Helper()

	if len(resp.Findings) != 1 {
		t.Fatalf("len(Findings) = %v, want 1", len(resp.Findings))
	}
	f := resp.Findings[0]
	if f.Title != "Repeated retries followed by silence" {
		t.Errorf("Title = %q, want the mock finding title", f.Title)
	}
	if f.SeverityGuess != "medium" {
		t.Errorf("SeverityGuess = %v, want medium", f.SeverityGuess)
	}
	if len(f.LineNumbers) != 2 || f.LineNumbers[0] != 12 || f.LineNumbers[1] != 14 {
		t.Errorf("LineNumbers = %v, want [12 14]", f.LineNumbers)
	}
}

// verifyLocalProviderStats checks stats from local LLM providers (Ollama, LM Studio).
// Local providers have zero cost and expected token counts.
func verifyLocalProviderStats(t *testing.T, stats *Stats, provider string) {
	t.Helper()

	if stats.InputTokens != 1500 {
		t.Errorf("InputTokens = %v, want 1500", stats.InputTokens)
	}
	if stats.OutputTokens != 250 {
		t.Errorf("OutputTokens = %v, want 250", stats.OutputTokens)
	}
	if stats.CostUSD != 0 {
		t.Errorf("CostUSD = %v, want 0 (local inference)", stats.CostUSD)
	}
	if provider != "" && stats.Provider != provider {
		t.Errorf("Provider = %v, want %s", stats.Provider, provider)
	}
}
