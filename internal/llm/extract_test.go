package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	raw, err := ExtractJSON(`{"dishes": []}`, "test")
	require.NoError(t, err)
	assert.JSONEq(t, `{"dishes": []}`, string(raw))
}

func TestExtractJSON_JSONFence(t *testing.T) {
	text := "Here are your dishes:\n```json\n{\"dishes\": [{\"name\": \"Fried Rice\"}]}\n```\nEnjoy!"

	raw, err := ExtractJSON(text, "test")
	require.NoError(t, err)
	assert.JSONEq(t, `{"dishes": [{"name": "Fried Rice"}]}`, string(raw))
}

func TestExtractJSON_GenericFence(t *testing.T) {
	text := "```\n{\"steps\": [\"chop\", \"fry\"]}\n```"

	raw, err := ExtractJSON(text, "test")
	require.NoError(t, err)
	assert.JSONEq(t, `{"steps": ["chop", "fry"]}`, string(raw))
}

func TestExtractJSON_FencePrecedence(t *testing.T) {
	// A generic fence appears first in the text, but the json-tagged fence
	// must win.
	text := "```\n{\"from\": \"generic\"}\n```\nand also\n```json\n{\"from\": \"tagged\"}\n```"

	raw, err := ExtractJSON(text, "test")
	require.NoError(t, err)
	assert.JSONEq(t, `{"from": "tagged"}`, string(raw))
}

func TestExtractJSON_BraceSpanInProse(t *testing.T) {
	text := `Sure! The answer is {"name": "Pho", "difficulty": "Hard"} as requested.`

	raw, err := ExtractJSON(text, "test")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Pho", "difficulty": "Hard"}`, string(raw))
}

func TestExtractJSON_Idempotent(t *testing.T) {
	text := "```json\n{\"dishes\": [{\"name\": \"Omelette\", \"difficulty\": \"Easy\"}]}\n```"

	first, err := ExtractJSON(text, "test")
	require.NoError(t, err)

	// Re-extracting the extracted document yields the same structure.
	second, err := ExtractJSON(string(first), "test")
	require.NoError(t, err)

	var a, b any
	require.NoError(t, json.Unmarshal(first, &a))
	require.NoError(t, json.Unmarshal(second, &b))
	assert.Equal(t, a, b)
}

func TestExtractJSON_Failures(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t  "},
		{"malformed in braces", `{"name": "Pho", unquoted}`},
		{"no json at all", "I could not come up with any dishes, sorry."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := ExtractJSON(tc.text, "test")
			assert.Error(t, err)
			assert.Nil(t, raw)
		})
	}
}

func TestExtractJSON_UnterminatedFenceFallsBack(t *testing.T) {
	// A fence the model forgot to close still yields the document through
	// the brace-span fallback.
	raw, err := ExtractJSON("```json\n{\"dishes\": []}", "test")
	require.NoError(t, err)
	assert.JSONEq(t, `{"dishes": []}`, string(raw))
}

func TestExtractJSON_ErrorIncludesContext(t *testing.T) {
	_, err := ExtractJSON("no json here", "session-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session-123")
}
