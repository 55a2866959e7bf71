package expand

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"dist":         {},
	"build":        {},
	"target":       {},
	".next":        {},
	"__pycache__":  {},
	".venv":        {},
}

// ErrNotGitRepository is returned when git is required and the root is not
// inside a working tree.
var ErrNotGitRepository = errors.New("expand: workspace is not inside a git repository")

const maxCachedRoots = 16

// Workspace is a snapshot of the files under a root.
type Workspace struct {
	Root string
	// Files are slash separated paths relative to Root.
	Files     []string
	IndexedAt time.Time
	Truncated bool
}

// Index walks workspace roots lazily and caches the listing per root.
type Index struct {
	maxFiles int
	maxDepth int
	cache    *expirable.LRU[string, *Workspace]
}

func NewIndex(maxFiles, maxDepth int, ttl time.Duration) *Index {
	if maxFiles <= 0 {
		maxFiles = 50000
	}
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Index{
		maxFiles: maxFiles,
		maxDepth: maxDepth,
		cache:    expirable.NewLRU[string, *Workspace](maxCachedRoots, nil, ttl),
	}
}

// Files returns the cached workspace for root, walking it when the cached
// copy is missing or expired.
func (i *Index) Files(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if ws, ok := i.cache.Get(abs); ok {
		return ws, nil
	}
	ws, err := i.walk(abs)
	if err != nil {
		return nil, err
	}
	i.cache.Add(abs, ws)
	return ws, nil
}

// Invalidate drops the cached listing for root.
func (i *Index) Invalidate(root string) {
	if abs, err := filepath.Abs(root); err == nil {
		i.cache.Remove(abs)
	}
}

var errStopWalk = errors.New("stop walk")

func (i *Index) walk(root string) (*Workspace, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "index", Path: root, Err: errors.New("not a directory")}
	}

	ws := &Workspace{Root: root, IndexedAt: time.Now()}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		depth := strings.Count(rel, "/") + 1
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip || depth >= i.maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ws.Files = append(ws.Files, rel)
		if len(ws.Files) >= i.maxFiles {
			ws.Truncated = true
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return nil, err
	}
	return ws, nil
}

// Resolve returns the single file a token refers to. Tokens without a slash
// match by exact basename first; otherwise, or when no basename matches, the
// token must equal a relative path or be a slash-delimited suffix of one.
func (ws *Workspace) Resolve(token string) (string, bool) {
	token = strings.TrimPrefix(filepath.ToSlash(token), "./")
	if token == "" {
		return "", false
	}
	if !strings.Contains(token, "/") {
		var matches []string
		for _, f := range ws.Files {
			if path.Base(f) == token {
				matches = append(matches, f)
			}
		}
		if len(matches) > 0 {
			return unique(matches)
		}
	}
	var matches []string
	for _, f := range ws.Files {
		if f == token || strings.HasSuffix(f, "/"+token) {
			matches = append(matches, f)
		}
	}
	return unique(matches)
}

func unique(matches []string) (string, bool) {
	if len(matches) != 1 {
		return "", false
	}
	return matches[0], true
}

// InsideGit reports whether dir or one of its parents holds a .git entry.
func InsideGit(dir string) bool {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}
