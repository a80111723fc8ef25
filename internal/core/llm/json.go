package llm

import (
	"encoding/json"
	"strings"
)

const codeFence = "```"

// ExtractJSON returns the first valid JSON object embedded in text, e.g. one
// wrapped in a markdown fence or preceded by prose. Text without a valid
// object is returned trimmed.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(stripFence(text))

	if json.Valid([]byte(text)) {
		return text
	}

	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > start {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}

		start += next + 1
	}

	return text
}

func stripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, codeFence) {
		return text
	}

	trimmed = strings.TrimPrefix(trimmed, codeFence)
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}

	return strings.TrimSuffix(strings.TrimSpace(trimmed), codeFence)
}

// matchBrace returns the index of the brace closing the one at start,
// ignoring braces inside JSON strings, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
