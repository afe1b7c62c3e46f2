package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		response, err := parseVerdict(`{"category": "sale", "confidence": 0.85, "reasoning": "POS inflow"}`)

		require.NoError(t, err)
		assert.Equal(t, "sale", response.Category)
		assert.InDelta(t, 0.85, response.Confidence, 1e-9)
		assert.Equal(t, "POS inflow", response.Reasoning)
	})

	t.Run("markdown fenced JSON", func(t *testing.T) {
		content := "```json\n{\"category\": \"expense\", \"confidence\": 0.7, \"reasoning\": \"bank charge\"}\n```"
		response, err := parseVerdict(content)

		require.NoError(t, err)
		assert.Equal(t, "expense", response.Category)
	})

	t.Run("bare fence", func(t *testing.T) {
		content := "```\n{\"category\": \"sale\", \"confidence\": 0.9}\n```"
		response, err := parseVerdict(content)

		require.NoError(t, err)
		assert.Equal(t, "sale", response.Category)
	})

	t.Run("category is lowercased and trimmed", func(t *testing.T) {
		response, err := parseVerdict(`{"category": "  Sale ", "confidence": 0.9}`)

		require.NoError(t, err)
		assert.Equal(t, "sale", response.Category)
	})
}

func TestParseVerdictRejectsMalformedResponses(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"not JSON", "the transaction looks like a sale"},
		{"truncated JSON", `{"category": "sale", "conf`},
		{"empty body", ""},
		{"missing category", `{"confidence": 0.8}`},
		{"empty category", `{"category": "", "confidence": 0.8}`},
		{"confidence above one", `{"category": "sale", "confidence": 1.2}`},
		{"negative confidence", `{"category": "sale", "confidence": -0.1}`},
		{"zero confidence", `{"category": "sale", "confidence": 0}`},
		{"missing confidence", `{"category": "sale"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseVerdict(tc.content)
			assert.Error(t, err)
		})
	}
}

func TestCleanMarkdownWrapper(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("  {\"a\":1}  "))
}
