// Package recovery turns free-form language model output into a JSON array
// candidate and decodes that candidate into generic records without ever
// failing out of its own scope.
package recovery

import (
	"regexp"
	"strings"
)

// EmptyArray is the candidate produced for empty input, and the text
// written when nothing could be recovered.
const EmptyArray = "[]"

// a fenced block (optional language tag) whose content is bracketed
var fencedArrayRegex = regexp.MustCompile("(?is)```[a-z0-9_+.-]*\\s*(\\[.*?\\])\\s*```")

// Recover extracts the best-effort JSON array candidate from a model response.
// In order, first match wins:
//  1. empty or whitespace only input -> "[]"
//  2. the bracketed content of the first fenced code block
//  3. the text between the first '[' and the last ']'
//  4. the trimmed input itself, which may or may not be valid JSON
//
// Recover is purely textual and is defined for every input.
func Recover(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return EmptyArray
	}

	groups := fencedArrayRegex.FindStringSubmatch(trimmed)
	if len(groups) == 2 {
		return strings.TrimSpace(groups[1])
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end > start {
		return strings.TrimSpace(trimmed[start : end+1])
	}

	return trimmed
}
