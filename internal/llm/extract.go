package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const snippetLimit = 500

// ExtractJSON locates a JSON document inside raw model output. Model output is
// not contractually formatted: the document may sit inside a fenced code
// block, be surrounded by prose, or be the whole response. Candidates are
// tried in strict precedence order and the first that parses as valid JSON
// wins:
//
//  1. the interior of a ```json fence, then of a generic ``` fence
//  2. the substring from the first '{' to the last '}' (inclusive)
//  3. the entire trimmed text
//
// Location is permissive; validity is not. Schema checks are the caller's
// concern.
func ExtractJSON(text, contextID string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("extract [%s]: empty completion text", contextID)
	}

	for _, candidate := range []string{
		fencedBlock(text, "```json"),
		fencedBlock(text, "```"),
		braceSpan(text),
		trimmed,
	} {
		if candidate == "" {
			continue
		}
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	return nil, fmt.Errorf("extract [%s]: no valid JSON in completion text: %q", contextID, snippet(text))
}

// fencedBlock returns the trimmed interior of the first fence opened by the
// given marker, or "" when no complete fence exists.
func fencedBlock(text, marker string) string {
	start := strings.Index(text, marker)
	if start == -1 {
		return ""
	}

	inner := text[start+len(marker):]
	if len(inner) > 0 && inner[0] == '\n' {
		inner = inner[1:]
	}

	end := strings.Index(inner, "```")
	if end == -1 {
		return ""
	}

	return strings.TrimSpace(inner[:end])
}

// braceSpan returns the substring from the first '{' to the last '}', or ""
// when the text holds no such span.
func braceSpan(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

// snippet truncates text for error diagnostics.
func snippet(text string) string {
	if len(text) > snippetLimit {
		return text[:snippetLimit]
	}
	return text
}
