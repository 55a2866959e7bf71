package jargon

import (
	"regexp"
	"sort"
	"strings"
)

// Spans never rewritten: @tokens, backtick code, URLs, paths and CLI flags.
var protectedPattern = regexp.MustCompile(strings.Join([]string{
	`@"[^"]*"`,
	`@[\w\-./]+`,
	"`[^`]+`",
	`https?://\S+`,
	`~/[\w\-./]*`,
	`/[\w\-]+(?:/[\w\-.*]+)+`,
	`(?:^|\s)--?[\w\-]+=?(?:[\w\-./]+)?`,
}, "|"))

// maxPasses bounds re-application when one rewrite exposes another match.
const maxPasses = 3

// Corrector applies directional phrase corrections longest first. Text that
// already reads as some correction's output is left alone unless a longer
// phrase claims it, so applying a corrector to its own output changes
// nothing.
type Corrector struct {
	re      *regexp.Regexp
	targets map[string]string
	outputs map[string]bool
	rules   []Correction
}

type alternative struct {
	pattern string
	size    int
	output  bool
}

func NewCorrector(corrections []Correction) *Corrector {
	rules := dedupe(corrections)
	c := &Corrector{
		targets: make(map[string]string, len(rules)),
		outputs: make(map[string]bool, len(rules)),
		rules:   rules,
	}
	if len(rules) == 0 {
		return c
	}
	alts := make([]alternative, 0, 2*len(rules))
	for _, r := range rules {
		c.targets[phraseKey(r.From)] = r.To
		alts = append(alts, alternative{pattern: "(?i:" + phrasePattern(r.From) + ")", size: len(r.From)})
		if !c.outputs[r.To] {
			c.outputs[r.To] = true
			alts = append(alts, alternative{pattern: literalPattern(r.To), size: len(r.To), output: true})
		}
	}
	// Leftmost-first alternation: longer phrases win, and on a tie an exact
	// output is kept rather than rewritten.
	sort.SliceStable(alts, func(i, j int) bool {
		if alts[i].size != alts[j].size {
			return alts[i].size > alts[j].size
		}
		return alts[i].output && !alts[j].output
	})
	patterns := make([]string, len(alts))
	for i, a := range alts {
		patterns[i] = a.pattern
	}
	c.re = regexp.MustCompile(strings.Join(patterns, "|"))
	return c
}

// Rules returns the corrections in application order.
func (c *Corrector) Rules() []Correction {
	return append([]Correction(nil), c.rules...)
}

// Apply rewrites text outside protected spans.
func (c *Corrector) Apply(text string) string {
	if c.re == nil || text == "" {
		return text
	}
	return outsideProtected(text, func(gap string) string {
		for pass := 0; pass < maxPasses; pass++ {
			next := c.re.ReplaceAllStringFunc(gap, func(m string) string {
				if c.outputs[m] {
					return m
				}
				if to, ok := c.targets[phraseKey(m)]; ok {
					return to
				}
				return m
			})
			if next == gap {
				break
			}
			gap = next
		}
		return gap
	})
}

// outsideProtected applies fn to every run of text between protected spans.
func outsideProtected(text string, fn func(string) string) string {
	spans := protectedPattern.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return fn(text)
	}
	var b strings.Builder
	prev := 0
	for _, s := range spans {
		if s[0] > prev {
			b.WriteString(fn(text[prev:s[0]]))
		}
		b.WriteString(text[s[0]:s[1]])
		prev = s[1]
	}
	if prev < len(text) {
		b.WriteString(fn(text[prev:]))
	}
	return b.String()
}

// phrasePattern matches the words of phrase separated by any whitespace,
// anchored on word boundaries where the phrase starts or ends with a word
// character.
func phrasePattern(phrase string) string {
	fields := strings.Fields(phrase)
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	p := strings.Join(quoted, `\s+`)
	if len(fields) > 0 {
		if isWordByte(fields[0][0]) {
			p = `\b` + p
		}
		last := fields[len(fields)-1]
		if isWordByte(last[len(last)-1]) {
			p += `\b`
		}
	}
	return p
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// literalPattern matches s exactly, anchored on word boundaries like
// phrasePattern.
func literalPattern(s string) string {
	p := regexp.QuoteMeta(s)
	if isWordByte(s[0]) {
		p = `\b` + p
	}
	if isWordByte(s[len(s)-1]) {
		p += `\b`
	}
	return p
}

// dedupe keeps the last correction for each normalised From and orders the
// result longest From first.
func dedupe(corrections []Correction) []Correction {
	byKey := make(map[string]Correction, len(corrections))
	for _, c := range corrections {
		key := phraseKey(c.From)
		if key == "" || strings.TrimSpace(c.To) == "" {
			continue
		}
		byKey[key] = Correction{From: strings.TrimSpace(c.From), To: strings.TrimSpace(c.To)}
	}
	out := make([]Correction, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].From, out[j].From
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return out
}
