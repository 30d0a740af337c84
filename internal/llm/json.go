package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidResponse marks a model response that could not be parsed as the
// requested JSON shape, even after fenced-block extraction.
var ErrInvalidResponse = errors.New("invalid structured response")

const previewLimit = 200

// DecodeJSON unmarshals a model's structured response into out. Models behind
// OpenAI-compatible proxies sometimes wrap JSON in markdown code fences
// despite a schema request, so when the raw text does not parse, each fenced
// block is tried before giving up. Failures carry a truncated preview of the
// offending text.
func DecodeJSON(text string, out any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}

	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	for _, block := range fencedBlocks(trimmed) {
		if err := json.Unmarshal([]byte(block), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrInvalidResponse, truncate(trimmed, previewLimit))
}

// fencedBlocks returns the contents of every ``` fenced block in text, with
// any language tag on the opening fence stripped.
func fencedBlocks(text string) []string {
	var blocks []string
	rest := text
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			break
		}
		rest = rest[open+3:]

		// Drop a language tag such as "json" on the opening fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			firstLine := strings.TrimSpace(rest[:nl])
			if firstLine != "" && !strings.ContainsAny(firstLine, "{[") {
				rest = rest[nl+1:]
			}
		}

		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		blocks = append(blocks, strings.TrimSpace(rest[:end]))
		rest = rest[end+3:]
	}
	return blocks
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
