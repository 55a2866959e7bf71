package expand

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

const (
	snippetSeparator = "\n------------------------------------------------------------\n"
	binarySniffBytes = 8192
)

var fenceLanguages = map[string]string{
	".rs":    "rust",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".py":    "python",
	".go":    "go",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cc":    "cpp",
	".rb":    "ruby",
	".sh":    "bash",
	".bash":  "bash",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".md":    "markdown",
	".html":  "html",
	".css":   "css",
	".sql":   "sql",
	".swift": "swift",
	".kt":    "kotlin",
	".kts":   "kotlin",
}

// Reference is a token that resolved to exactly one file.
type Reference struct {
	Token string
	Path  string
}

// Result carries both renditions of an utterance. History is the text as
// dictated; Delivered has referenced file snippets appended.
type Result struct {
	History   string
	Delivered string
	Resolved  []Reference
}

type Expander struct {
	index      *Index
	root       string
	requireGit bool
	maxLines   int
	maxBytes   int
	log        *slog.Logger
}

func New(cfg config.ExpansionConfig, log *slog.Logger) *Expander {
	return &Expander{
		index:      NewIndex(cfg.MaxFiles, cfg.MaxDepth, time.Duration(cfg.CacheTTLMS)*time.Millisecond),
		root:       cfg.WorkspaceRoot,
		requireGit: cfg.RequireGit,
		maxLines:   max(cfg.SnippetMaxLines, 1),
		maxBytes:   max(cfg.SnippetMaxBytes, 1),
		log:        log.With(slog.String("component", "expand")),
	}
}

// Root returns the configured workspace root, or the working directory.
func (e *Expander) Root() (string, error) {
	if e.root != "" {
		return e.root, nil
	}
	return os.Getwd()
}

// Expand resolves @references in text. Unresolved or ambiguous tokens are
// left alone and contribute nothing. On error the result still carries text
// unchanged in both fields.
func (e *Expander) Expand(text string) (Result, error) {
	res := Result{History: text, Delivered: text}
	tokens := ParseTokens(text)
	if len(tokens) == 0 {
		return res, nil
	}
	root, err := e.Root()
	if err != nil {
		return res, fmt.Errorf("workspace root: %w", err)
	}
	if e.requireGit && !InsideGit(root) {
		e.log.Debug("expansion skipped", slog.String("root", root), slog.String("reason", ErrNotGitRepository.Error()))
		return res, nil
	}
	ws, err := e.index.Files(root)
	if err != nil {
		return res, fmt.Errorf("index workspace %s: %w", root, err)
	}

	var b strings.Builder
	b.WriteString(text)
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		rel, ok := ws.Resolve(tok.Value)
		if !ok {
			e.log.Debug("token unresolved", slog.String("token", tok.Value))
			continue
		}
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}
		snippet, ok := e.snippet(ws.Root, rel)
		if !ok {
			continue
		}
		b.WriteString(snippet)
		res.Resolved = append(res.Resolved, Reference{Token: tok.Value, Path: rel})
	}
	res.Delivered = b.String()
	if len(res.Resolved) > 0 {
		e.log.Debug("references expanded", slog.Int("count", len(res.Resolved)), slog.Bool("index_truncated", ws.Truncated))
	}
	return res, nil
}

func (e *Expander) snippet(root, rel string) (string, bool) {
	raw, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		e.log.Debug("reference unreadable", slog.String("path", rel), slog.String("error", err.Error()))
		return "", false
	}
	if bytes.IndexByte(raw[:min(len(raw), binarySniffBytes)], 0) >= 0 || !utf8.Valid(raw) {
		return "", false
	}
	body := truncate(string(raw), e.maxLines, e.maxBytes)
	return fmt.Sprintf("%s### Referenced file: %s\n```%s\n%s\n```", snippetSeparator, rel, fenceLanguages[strings.ToLower(path.Ext(rel))], body), true
}

// truncate keeps whole lines up to maxLines and maxBytes. A first line that
// alone exceeds maxBytes is cut at a rune boundary.
func truncate(text string, maxLines, maxBytes int) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	var b strings.Builder
	for n, line := range strings.Split(text, "\n") {
		if n >= maxLines {
			break
		}
		extra := len(line)
		if n > 0 {
			extra++
		}
		if b.Len()+extra > maxBytes {
			if n == 0 {
				b.WriteString(cutRunes(line, maxBytes))
			}
			break
		}
		if n > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
