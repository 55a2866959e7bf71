package expand

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`@([A-Za-z0-9_\-./]+)|@"([^"]+)"`)

// Token is an @reference found in dictated text.
type Token struct {
	Value  string
	Quoted bool
	// Start and End are byte offsets of the whole reference, @ included.
	Start int
	End   int
}

// Raw returns the reference as it appears in text.
func (t Token) Raw(text string) string {
	return text[t.Start:t.End]
}

// ParseTokens finds @name and @"quoted name" references. An @ preceded by a
// letter, digit or underscore is treated as part of an email address.
func ParseTokens(text string) []Token {
	var tokens []Token
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if start > 0 && isWordByte(text[start-1]) {
			continue
		}
		var (
			value  string
			quoted bool
		)
		switch {
		case m[2] >= 0:
			value = strings.TrimRight(text[m[2]:m[3]], ".,;:!?)]}")
			end = m[2] + len(value)
		case m[4] >= 0:
			value = strings.TrimSpace(text[m[4]:m[5]])
			quoted = true
		}
		if value == "" {
			continue
		}
		tokens = append(tokens, Token{Value: value, Quoted: quoted, Start: start, End: end})
	}
	return tokens
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
