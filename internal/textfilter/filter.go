// Package textfilter cleans raw recogniser output: filler words, stutter
// artefacts and whole-output hallucinations are removed before any other
// stage sees the text.
package textfilter

import (
	"regexp"
	"strings"
	"unicode"
)

var fillerWords = []string{
	"uh", "um", "uhm", "umm", "uhh", "uhhh", "ah", "eh", "hmm", "hm", "mmm", "mm", "mh", "ha", "ehh",
}

var fillerPattern = func() *regexp.Regexp {
	quoted := make([]string, len(fillerWords))
	for i, w := range fillerWords {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b[,.]?`)
}()

var multiSpace = regexp.MustCompile(`\s{2,}`)

// Phrases the recogniser produces for near-silent audio. Matched against the
// whole output only, after punctuation is stripped.
var hallucinationPhrases = map[string]struct{}{
	"thank you for watching":    {},
	"thanks for watching":       {},
	"thank you for listening":   {},
	"thanks for listening":      {},
	"please subscribe":          {},
	"like and subscribe":        {},
	"see you next time":         {},
	"see you in the next video": {},
	"bye bye":                   {},
	"bye":                       {},
	"thank you":                 {},
	"thanks":                    {},
	"subtitles by":              {},
	"you":                       {},
}

var hallucinationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(for more information[,.]?\s*)?(visit|go to)\s+\S+(\s+(or\s+)?(visit|go to)\s+\S+)*(\s+for more information)?[.,]?\s*$`),
	regexp.MustCompile(`(?i)^for more information[,.]?\s*(visit|go to)\s+\S+[.,]?\s*$`),
	regexp.MustCompile(`(?i)^subtitles\s+(by|provided by|created by)\s+.*$`),
}

// Clean removes fillers and stutters, collapses whitespace and returns the
// empty string when what is left is a known hallucination.
func Clean(text string) string {
	out := fillerPattern.ReplaceAllString(text, "")
	out = CollapseStutters(out)
	out = multiSpace.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)
	if IsHallucination(out) {
		return ""
	}
	return out
}

// CollapseStutters reduces three or more consecutive repeats of a one or two
// letter word to a single instance. Two repeats are kept.
func CollapseStutters(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		word := words[i]
		lower := strings.ToLower(word)
		if len([]rune(lower)) <= 2 && isAlpha(lower) {
			count := 1
			for i+count < len(words) && strings.ToLower(words[i+count]) == lower {
				count++
			}
			out = append(out, word)
			if count >= 3 {
				i += count
			} else {
				i++
			}
			continue
		}
		out = append(out, word)
		i++
	}
	return strings.Join(out, " ")
}

// IsHallucination reports whether the whole text is a known phantom phrase.
func IsHallucination(text string) bool {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	normalized := strings.ToLower(strings.TrimSpace(b.String()))
	if normalized == "" {
		return false
	}
	if _, ok := hallucinationPhrases[normalized]; ok {
		return true
	}
	trimmed := strings.TrimSpace(text)
	for _, re := range hallucinationPatterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
