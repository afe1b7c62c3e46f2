package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// providerVerdict is the JSON schema every provider must answer with.
type providerVerdict struct {
	Category   string  `json:"category"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// cleanMarkdownWrapper strips markdown code fences some models wrap JSON in.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// parseVerdict decodes and validates a provider's response body. Any schema
// violation is an error — a response we cannot trust is a hard failure, never
// a low-confidence result.
func parseVerdict(content string) (ClassificationResponse, error) {
	content = cleanMarkdownWrapper(content)

	var verdict providerVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return ClassificationResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if verdict.Category == "" {
		return ClassificationResponse{}, fmt.Errorf("no category in response")
	}
	// Zero is excluded: a verdict the provider itself has no confidence in is
	// unusable, and zero confidence is reserved for the needs_review state.
	if verdict.Confidence <= 0 || verdict.Confidence > 1 {
		return ClassificationResponse{}, fmt.Errorf("confidence %f outside (0,1]", verdict.Confidence)
	}

	return ClassificationResponse{
		Category:   strings.ToLower(strings.TrimSpace(verdict.Category)),
		Confidence: verdict.Confidence,
		Reasoning:  verdict.Reasoning,
	}, nil
}
