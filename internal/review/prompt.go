package review

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"logtriage/internal/model"
)

// Finding is one suspected issue reported by the review backend. Line
// numbers reference the original file so a human can cross-check the
// source.
type Finding struct {
	LineNumbers    []int   `json:"line_numbers"`
	SeverityGuess  string  `json:"severity_guess"`
	Confidence     float64 `json:"confidence"`
	Title          string  `json:"title"`
	Rationale      string  `json:"rationale"`
	Recommendation string  `json:"recommendation"`
}

// Response represents the structured review result from the backend
type Response struct {
	Findings []Finding `json:"findings"`
}

// GetSystemPrompt returns the system prompt shared by all backends
func GetSystemPrompt() string {
	return `You are a log triage assistant. You review application log lines that were NOT classified as elevated severity by local parsing, looking for hidden error or incident signals.

**Review Principles:**
- Only use evidence from the given lines
- Reference line_numbers only from the provided lines
- Prefer fewer, higher-quality findings
- If nothing looks like an incident, return an empty findings array
- Sensitive values in the lines have been replaced with <REDACTED_*> markers; treat them as opaque

**What to look for:**
- Silent failures (operations that report success but show anomalies)
- Repeated retries, slow responses, or resource exhaustion hints
- Security-relevant activity (unusual access patterns, auth anomalies)
- Inconsistencies between consecutive lines that suggest a fault

**Output Requirements:**

You MUST respond with a valid JSON object (and ONLY JSON) in this exact format:

{
  "findings": [
    {
      "line_numbers": [12, 14],
      "severity_guess": "low|medium|high",
      "confidence": 0.75,
      "title": "Short title of the suspected issue",
      "rationale": "Why these lines may indicate an error or incident",
      "recommendation": "Next debugging step to confirm or mitigate"
    }
  ]
}

confidence is a number between 0.0 and 1.0. An empty findings array is a valid response.`
}

// GetUserPrompt constructs the user prompt for one redacted chunk. The
// identified levels tell the model which severities were already handled
// locally.
func GetUserPrompt(chunkText string, identifiedLevels []model.Level) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("You will be given application log lines not classified as: %s.\n\n",
		levelNames(identifiedLevels)))
	prompt.WriteString("LOG LINES:\n")
	prompt.WriteString(SanitizeLogContent(chunkText))
	prompt.WriteString("\n\nIdentify whether these lines likely indicate a hidden error or incident signal and respond in JSON format as specified.")

	return prompt.String()
}

// levelNames renders a deterministic, comma-separated level list.
func levelNames(levels []model.Level) string {
	names := make([]string, 0, len(levels))
	for _, l := range levels {
		names = append(names, string(l))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// promptInjectionPatterns contains regex patterns for common prompt injection attempts
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+a`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)system\s*prompt\s*:`),
	regexp.MustCompile(`(?i)\bASSISTANT\s*:`),
	regexp.MustCompile(`(?i)\bHUMAN\s*:`),
	regexp.MustCompile(`(?i)\bUSER\s*:`),
	regexp.MustCompile(`(?i)\bSYSTEM\s*:`),
}

// SanitizeLogContent sanitizes log content before it enters a prompt.
// This removes:
// - Non-printable characters (except newlines, tabs, carriage returns)
// - Common prompt injection patterns
// - Excessive whitespace
func SanitizeLogContent(content string) string {
	var sanitized strings.Builder
	sanitized.Grow(len(content))

	for _, r := range content {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	for _, pattern := range promptInjectionPatterns {
		result = pattern.ReplaceAllString(result, "[FILTERED]")
	}

	// Normalize excessive newlines (more than 3 consecutive)
	excessiveNewlines := regexp.MustCompile(`\n{4,}`)
	result = excessiveNewlines.ReplaceAllString(result, "\n\n\n")

	return result
}

// Maximum allowed JSON response size (1MB) to prevent memory exhaustion
const maxJSONResponseSize = 1024 * 1024

// sanitizeJSONEscapes fixes invalid JSON escape sequences in LLM responses.
// JSON only allows: \" \\ \/ \b \f \n \r \t \uXXXX
// LLMs sometimes produce invalid sequences like \. \( \) \- etc.
func sanitizeJSONEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			next := s[i+1]
			// Valid JSON escapes: " \ / b f n r t u
			if next == '"' || next == '\\' || next == '/' ||
				next == 'b' || next == 'f' || next == 'n' ||
				next == 'r' || next == 't' || next == 'u' {
				result.WriteByte(s[i])
				result.WriteByte(next)
				i += 2
				continue
			}
			// Invalid escape - skip the backslash, keep the character
			result.WriteByte(next)
			i += 2
			continue
		}
		result.WriteByte(s[i])
		i++
	}
	return result.String()
}

// ParseResponse extracts and parses the JSON findings from a backend response
func ParseResponse(response string) (*Response, error) {
	// Extract JSON from response using balanced brace matching
	jsonMatch := extractJSON(response)

	if jsonMatch == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	// Check JSON size limit to prevent memory exhaustion
	if len(jsonMatch) > maxJSONResponseSize {
		return nil, fmt.Errorf("JSON response too large: %d bytes (max: %d)", len(jsonMatch), maxJSONResponseSize)
	}

	// Sanitize invalid JSON escape sequences that LLMs sometimes produce
	sanitizedJSON := sanitizeJSONEscapes(jsonMatch)

	var parsed Response
	if err := json.Unmarshal([]byte(sanitizedJSON), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	normalizeResponse(&parsed)
	return &parsed, nil
}

// normalizeResponse enforces the findings schema: findings with no line
// references or no title are dropped, confidence is clamped to [0, 1] and
// an unrecognized severity guess degrades to "low".
func normalizeResponse(resp *Response) {
	normalized := make([]Finding, 0, len(resp.Findings))
	for _, f := range resp.Findings {
		if len(f.LineNumbers) == 0 || f.Title == "" {
			continue
		}

		if f.Confidence < 0 {
			f.Confidence = 0
		} else if f.Confidence > 1 {
			f.Confidence = 1
		}

		switch strings.ToLower(f.SeverityGuess) {
		case "low", "medium", "high":
			f.SeverityGuess = strings.ToLower(f.SeverityGuess)
		default:
			f.SeverityGuess = "low"
		}

		normalized = append(normalized, f)
	}
	resp.Findings = normalized
}

// extractJSON extracts the first balanced JSON object from a response string.
// This is more reliable than greedy regex matching.
func extractJSON(response string) string {
	// Find the first opening brace
	startIdx := strings.Index(response, "{")
	if startIdx == -1 {
		return ""
	}

	// Track brace depth to find matching closing brace
	depth := 0
	inString := false
	escaped := false

	for i := startIdx; i < len(response); i++ {
		char := response[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' && inString {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if char == '{' {
			depth++
		} else if char == '}' {
			depth--
			if depth == 0 {
				return response[startIdx : i+1]
			}
		}
	}

	return ""
}
