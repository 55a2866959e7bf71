package jargon

import (
	"sort"
	"strings"
)

// Dictionary is the merged vocabulary of the active profiles plus the user's
// own terms and corrections.
type Dictionary struct {
	Terms       []string
	Corrections []Correction
}

// Custom carries user-global vocabulary that applies regardless of profile.
type Custom struct {
	Terms       []string
	Corrections []Correction
}

// Compute merges custom vocabulary with the given profiles. Terms are
// deduplicated case-insensitively with custom casing winning, custom terms
// first and profile terms after in id order. Corrections are keyed by their
// normalised From; custom entries override profile entries. The result is
// ordered longest From first.
func Compute(snap Snapshot, profileIDs []string, custom Custom) Dictionary {
	ids := make([]string, 0, len(profileIDs))
	seenID := make(map[string]bool)
	for _, id := range profileIDs {
		if _, ok := snap.Get(id); ok && !seenID[id] {
			seenID[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var dict Dictionary
	seenTerm := make(map[string]bool)
	addTerm := func(t string) {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seenTerm[key] {
			return
		}
		seenTerm[key] = true
		dict.Terms = append(dict.Terms, t)
	}
	for _, t := range custom.Terms {
		addTerm(t)
	}
	for _, id := range ids {
		p, _ := snap.Get(id)
		for _, t := range p.Terms {
			addTerm(t)
		}
	}

	byFrom := make(map[string]Correction)
	put := func(c Correction) {
		key := phraseKey(c.From)
		if key == "" || strings.TrimSpace(c.To) == "" {
			return
		}
		byFrom[key] = Correction{From: strings.TrimSpace(c.From), To: strings.TrimSpace(c.To)}
	}
	for _, id := range ids {
		p, _ := snap.Get(id)
		for _, c := range p.Corrections {
			put(c)
		}
	}
	for _, c := range custom.Corrections {
		put(c)
	}
	for _, c := range byFrom {
		dict.Corrections = append(dict.Corrections, c)
	}
	sort.Slice(dict.Corrections, func(i, j int) bool {
		a, b := dict.Corrections[i].From, dict.Corrections[j].From
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return dict
}

const (
	initialPromptPrefix = "Technical dictation. Common terms: "
	initialPromptMax    = 1000
)

// InitialPrompt renders terms as a recogniser bias prompt no longer than
// 1000 bytes. Terms that do not fit are left out.
func InitialPrompt(terms []string) string {
	if len(terms) == 0 {
		return ""
	}
	available := initialPromptMax - len(initialPromptPrefix) - 1
	var parts []string
	used := 0
	for _, t := range terms {
		add := len(t)
		if len(parts) > 0 {
			add += 2
		}
		if used+add > available {
			break
		}
		parts = append(parts, t)
		used += add
	}
	if len(parts) == 0 {
		return ""
	}
	return initialPromptPrefix + strings.Join(parts, ", ") + "."
}

// phraseKey lowercases s and collapses internal whitespace.
func phraseKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
