package expand

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newExpander(root string) *Expander {
	return New(config.ExpansionConfig{
		Enabled:         true,
		WorkspaceRoot:   root,
		MaxFiles:        50000,
		MaxDepth:        10,
		CacheTTLMS:      5000,
		SnippetMaxLines: 200,
		SnippetMaxBytes: 25000,
	}, newLogger())
}

func expandText(t *testing.T, e *Expander, text string) Result {
	t.Helper()
	res, err := e.Expand(text)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	return res
}

func TestExpandReportsMissingRoot(t *testing.T) {
	e := newExpander(filepath.Join(t.TempDir(), "missing"))
	res, err := e.Expand("see @main.go")
	if err == nil {
		t.Fatal("expected error for missing workspace")
	}
	if res.Delivered != "see @main.go" || res.History != "see @main.go" {
		t.Fatalf("expected text unchanged on error, got %+v", res)
	}
}

func TestParseTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "Check @auth.ts for the bug", []string{"auth.ts"}},
		{"quoted", `Look at @"my file.ts" please`, []string{"my file.ts"}},
		{"email", "Send to user@example.com please", nil},
		{"underscore email", "ping first_last@example.com", nil},
		{"multiple", "See @auth.ts and @utils.rs", []string{"auth.ts", "utils.rs"}},
		{"path", "Check @src/lib.rs", []string{"src/lib.rs"}},
		{"trailing punctuation", "Fix @auth.ts, then @main.go).", []string{"auth.ts", "main.go"}},
		{"sentence start", "@README.md is stale", []string{"README.md"}},
		{"bare at", "meet @ noon", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tokens := ParseTokens(tc.in)
			var got []string
			for _, tok := range tokens {
				got = append(got, tok.Value)
			}
			if fmt.Sprint(got) != fmt.Sprint(tc.want) {
				t.Fatalf("ParseTokens(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseTokensOffsets(t *testing.T) {
	text := "Fix @auth.ts, now"
	tokens := ParseTokens(text)
	if len(tokens) != 1 {
		t.Fatalf("expected one token, got %d", len(tokens))
	}
	if raw := tokens[0].Raw(text); raw != "@auth.ts" {
		t.Fatalf("unexpected raw token %q", raw)
	}
}

func TestExpandUniqueMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/auth.ts", "export const auth = {};\n")
	writeFile(t, root, "src/main.ts", "import { auth } from './auth';\n")

	res := expandText(t, newExpander(root), "Check @auth.ts for the bug")
	if res.History != "Check @auth.ts for the bug" {
		t.Fatalf("history changed: %q", res.History)
	}
	want := "Check @auth.ts for the bug" +
		"\n------------------------------------------------------------\n" +
		"### Referenced file: src/auth.ts\n```typescript\nexport const auth = {};\n```"
	if res.Delivered != want {
		t.Fatalf("delivered = %q, want %q", res.Delivered, want)
	}
	if len(res.Resolved) != 1 || res.Resolved[0].Path != "src/auth.ts" {
		t.Fatalf("unexpected references %+v", res.Resolved)
	}
}

func TestExpandAmbiguousMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "web/auth.ts", "a\n")
	writeFile(t, root, "api/auth.ts", "b\n")

	res := expandText(t, newExpander(root), "Check @auth.ts")
	if res.Delivered != "Check @auth.ts" || len(res.Resolved) != 0 {
		t.Fatalf("ambiguous token should be left alone: %+v", res)
	}

	res = expandText(t, newExpander(root), "Check @api/auth.ts")
	if len(res.Resolved) != 1 || res.Resolved[0].Path != "api/auth.ts" {
		t.Fatalf("path token should disambiguate: %+v", res.Resolved)
	}
}

func TestExpandIgnoresEmail(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "example.com", "not code\n")

	res := expandText(t, newExpander(root), "Send it to user@example.com")
	if res.Delivered != res.History || len(res.Resolved) != 0 {
		t.Fatalf("email should not expand: %+v", res)
	}
}

func TestExpandSkipsBinaryAndDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "logo.png", "\x89PNG\x00\x00data")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = 1\n")

	res := expandText(t, newExpander(root), "See @logo.png and @index.js")
	if res.Delivered != res.History {
		t.Fatalf("expected no snippets, got %q", res.Delivered)
	}
}

func TestExpandDeduplicatesReferences(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	res := expandText(t, newExpander(root), "Compare @main.go with @main.go")
	if strings.Count(res.Delivered, "### Referenced file:") != 1 {
		t.Fatalf("expected one snippet, got %q", res.Delivered)
	}
}

func TestExpandRequiresGit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	cfg := config.ExpansionConfig{
		WorkspaceRoot:   root,
		RequireGit:      true,
		SnippetMaxLines: 200,
		SnippetMaxBytes: 25000,
	}

	if res := expandText(t, New(cfg, newLogger()), "@main.go"); len(res.Resolved) != 0 {
		t.Fatal("expected expansion to be skipped outside git")
	}
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if res := expandText(t, New(cfg, newLogger()), "@main.go"); len(res.Resolved) != 1 {
		t.Fatal("expected expansion inside git")
	}
}

func TestTruncate(t *testing.T) {
	var lines []string
	for i := 0; i < 300; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	got := truncate(strings.Join(lines, "\n"), 200, 25000)
	if n := strings.Count(got, "\n") + 1; n != 200 {
		t.Fatalf("expected 200 lines, got %d", n)
	}

	got = truncate(strings.Repeat("x", 100)+"\n"+strings.Repeat("y", 100), 200, 150)
	if got != strings.Repeat("x", 100) {
		t.Fatalf("expected first line only, got %d bytes", len(got))
	}

	got = truncate(strings.Repeat("é", 100), 200, 51)
	if len(got) != 50 {
		t.Fatalf("expected cut on rune boundary, got %d bytes", len(got))
	}
}

func TestIndexLimits(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, root, fmt.Sprintf("f%d.txt", i), "x")
	}
	writeFile(t, root, "a/b/c/deep.txt", "x")

	ws, err := NewIndex(3, 10, time.Minute).Files(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(ws.Files) != 3 || !ws.Truncated {
		t.Fatalf("expected truncated index of 3, got %d (%v)", len(ws.Files), ws.Truncated)
	}

	ws, err = NewIndex(100, 3, time.Minute).Files(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ws.Resolve("deep.txt"); ok {
		t.Fatal("file beyond max depth should not be indexed")
	}
}

func TestIndexCache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "one.txt", "1")
	idx := NewIndex(100, 10, time.Minute)
	if _, err := idx.Files(root); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "two.txt", "2")
	ws, _ := idx.Files(root)
	if len(ws.Files) != 1 {
		t.Fatalf("expected cached listing, got %v", ws.Files)
	}
	idx.Invalidate(root)
	ws, _ = idx.Files(root)
	if len(ws.Files) != 2 {
		t.Fatalf("expected fresh listing, got %v", ws.Files)
	}
}
