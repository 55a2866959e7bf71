package jargon

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNGram         = 3
	maxCandidateRune = 50
)

// FuzzyMatcher snaps near-miss spellings of custom terms to their canonical
// form. Up to three adjacent words are joined and compared so that split
// recognitions such as "Charge B" resolve to "ChargeBee".
type FuzzyMatcher struct {
	terms     []string
	squashed  [][]rune
	threshold float64
}

// NewFuzzyMatcher returns nil when there is nothing to match or the
// threshold disables matching.
func NewFuzzyMatcher(terms []string, threshold float64) *FuzzyMatcher {
	if threshold <= 0 || len(terms) == 0 {
		return nil
	}
	f := &FuzzyMatcher{threshold: threshold}
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		f.terms = append(f.terms, t)
		f.squashed = append(f.squashed, []rune(strings.ToLower(strings.ReplaceAll(t, " ", ""))))
	}
	if len(f.terms) == 0 {
		return nil
	}
	return f
}

// Apply rewrites text outside protected spans. A nil matcher returns text
// unchanged.
func (f *FuzzyMatcher) Apply(text string) string {
	if f == nil || text == "" {
		return text
	}
	return outsideProtected(text, f.applyGap)
}

func (f *FuzzyMatcher) applyGap(gap string) string {
	words := strings.Fields(gap)
	if len(words) == 0 {
		return gap
	}
	lead := gap[:len(gap)-len(strings.TrimLeftFunc(gap, unicode.IsSpace))]
	trail := gap[len(strings.TrimRightFunc(gap, unicode.IsSpace)):]

	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		matched := false
		for n := maxNGram; n >= 1; n-- {
			if i+n > len(words) {
				continue
			}
			group := words[i : i+n]
			if !contiguous(group) {
				continue
			}
			term, ok := f.best(squash(group))
			if !ok {
				continue
			}
			prefix, _ := splitPunct(group[0])
			_, suffix := splitPunct(group[n-1])
			out = append(out, prefix+matchCase(group[0], term)+suffix)
			i += n
			matched = true
			break
		}
		if !matched {
			out = append(out, words[i])
			i++
		}
	}
	return lead + strings.Join(out, " ") + trail
}

func (f *FuzzyMatcher) best(candidate []rune) (string, bool) {
	if len(candidate) == 0 || len(candidate) > maxCandidateRune {
		return "", false
	}
	code := soundex(candidate)
	best, bestScore := -1, 2.0
	for i, term := range f.squashed {
		longest := max(len(candidate), len(term))
		diff := len(candidate) - len(term)
		if diff < 0 {
			diff = -diff
		}
		if float64(diff) > max(float64(longest)*0.25, 2) {
			continue
		}
		score := float64(levenshtein(candidate, term)) / float64(longest)
		if code != "" && code == soundex(term) {
			score *= 0.3
		}
		if score < f.threshold && score < bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return "", false
	}
	return f.terms[best], true
}

// squash strips edge punctuation from each word, lowercases and concatenates.
func squash(words []string) []rune {
	var out []rune
	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		out = append(out, []rune(strings.ToLower(w))...)
	}
	return out
}

// contiguous reports whether a word group has no punctuation between its
// words, so that "B, then" is never joined.
func contiguous(group []string) bool {
	for k, w := range group {
		prefix, suffix := splitPunct(w)
		if (k > 0 && prefix != "") || (k < len(group)-1 && suffix != "") {
			return false
		}
	}
	return true
}

func splitPunct(word string) (prefix, suffix string) {
	isAlnum := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
	start := strings.IndexFunc(word, isAlnum)
	if start < 0 {
		return word, ""
	}
	end := strings.LastIndexFunc(word, isAlnum)
	_, size := utf8.DecodeRuneInString(word[end:])
	return word[:start], word[end+size:]
}

// matchCase carries the casing style of original onto replacement.
func matchCase(original, replacement string) string {
	allUpper := true
	for _, r := range original {
		if !unicode.IsUpper(r) {
			allUpper = false
			break
		}
	}
	if allUpper && original != "" {
		return strings.ToUpper(replacement)
	}
	if first, _ := utf8.DecodeRuneInString(original); unicode.IsUpper(first) {
		rs := []rune(replacement)
		if len(rs) > 0 {
			rs[0] = unicode.ToUpper(rs[0])
		}
		return string(rs)
	}
	return replacement
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

var soundexCodes = map[rune]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// soundex returns the four character American Soundex code of the letters
// in s, or "" when s has no ASCII letters.
func soundex(s []rune) string {
	var code []byte
	var last byte
	for _, r := range s {
		r = unicode.ToLower(r)
		if r < 'a' || r > 'z' {
			continue
		}
		c, consonant := soundexCodes[r]
		if len(code) == 0 {
			code = append(code, byte(unicode.ToUpper(r)))
			last = c
			continue
		}
		switch {
		case consonant && c != last:
			code = append(code, c)
			last = c
		case !consonant && r != 'h' && r != 'w':
			last = 0
		}
		if len(code) == 4 {
			break
		}
	}
	if len(code) == 0 {
		return ""
	}
	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code[:4])
}
