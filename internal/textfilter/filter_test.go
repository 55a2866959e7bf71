package textfilter

import "testing"

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"fillers", "So um I was thinking uh about this", "So I was thinking about this"},
		{"case insensitive", "UM this is UH a test", "this is a test"},
		{"punctuation", "Well, um, I think, uh. that's right", "Well, I think, that's right"},
		{"whitespace", "  Hello    world   test  ", "Hello world test"},
		{"combined", "  Um, so I was, uh, thinking about this  ", "so I was, thinking about this"},
		{"untouched", "This is a completely normal sentence.", "This is a completely normal sentence."},
		{"stutter", "w wh wh wh wh wh wh why", "w wh why"},
		{"short stutters", "I I I I think so so so so", "I think so"},
		{"mixed case stutter", "No NO no NO no", "No"},
		{"two repeats kept", "no no is fine", "no no is fine"},
		{"hallucination", "Thank you for watching.", ""},
		{"hallucination bare", "you", ""},
		{"hallucination url", "For more information, visit www.microsoft.com", ""},
		{"attribution", "Subtitles by the Amara.org community", ""},
		{"thanks inside sentence", "thanks for the review", "thanks for the review"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.want {
				t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestJoinSegments(t *testing.T) {
	cases := []struct {
		name  string
		parts []string
		want  string
	}{
		{"plain", []string{"hello there", "general kenobi"}, "hello there general kenobi"},
		{"punctuation start", []string{"wait", ", what"}, "wait, what"},
		{"open bracket", []string{"call it (", "maybe)"}, "call it (maybe)"},
		{"normalises spacing", []string{"one  two ,", "three"}, "one two, three"},
		{"skips empty", []string{"", "alpha", "  ", "beta"}, "alpha beta"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := JoinSegments(tc.parts); got != tc.want {
				t.Fatalf("JoinSegments(%q) = %q, want %q", tc.parts, got, tc.want)
			}
		})
	}
}
