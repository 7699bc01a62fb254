package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeKey lowercases a label and removes all whitespace, so that
// "Top speed (km/h)" and "top speed(km/h) " compare equal.
func NormalizeKey(name string) string {
	name = strings.ToLower(name)
	name = strings.TrimSpace(name)
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}
