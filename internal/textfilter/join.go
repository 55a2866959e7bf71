package textfilter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var spaceBeforePunct = regexp.MustCompile(`\s+([,.;:!?])`)

// Normalize collapses runs of whitespace and removes spaces before
// punctuation without touching casing.
func Normalize(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	return spaceBeforePunct.ReplaceAllString(collapsed, "$1")
}

// JoinSegments concatenates per-segment transcripts, inserting a single space
// at a boundary only when neither side already provides separation.
func JoinSegments(parts []string) string {
	var out strings.Builder
	for _, part := range parts {
		part = Normalize(part)
		if part == "" {
			continue
		}
		if needsBoundarySpace(out.String(), part) {
			out.WriteByte(' ')
		}
		out.WriteString(part)
	}
	return out.String()
}

func needsBoundarySpace(left, right string) bool {
	if left == "" || right == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(left)
	first, _ := utf8.DecodeRuneInString(right)
	if unicode.IsSpace(last) || strings.ContainsRune(`([{"'`, last) {
		return false
	}
	if unicode.IsSpace(first) || strings.ContainsRune(`.,;:!?)]}`, first) {
		return false
	}
	return true
}
