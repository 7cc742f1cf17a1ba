package slug

import (
	"regexp"
	"strings"
)

var (
	nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)
	whitespace  = regexp.MustCompile(`\s+`)
)

func Make(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = nonAlphaNum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	return s
}

// Hyphenate lower-cases input and collapses each whitespace run into a single
// hyphen. Punctuation is kept, unlike Make.
func Hyphenate(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	return whitespace.ReplaceAllString(s, "-")
}
