package corefs

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/codeintel/internal/config"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Walker discovers SourceFiles under a project root, honoring the
// configured include/exclude globs, per-file size cap, and optional
// .gitignore rules (§6 "File-system input"). A Walker is meant to be reused
// across repeated Walk calls against the same root: it remembers the
// FileID it assigned to each relative path, so re-ingesting an unchanged
// file set hands back the same ids (§3 "Lifecycle": the FileID is stable
// across re-ingestion of the same path).
type Walker struct {
	root      string
	cfg       *config.Config
	gitignore *config.GitignoreMatcher
	nextID    uint32
	idMu      sync.Mutex
	ids       map[string]types.FileID
}

// NewWalker constructs a Walker rooted at cfg.Project.Root.
func NewWalker(cfg *config.Config) *Walker {
	w := &Walker{root: cfg.Project.Root, cfg: cfg, ids: make(map[string]types.FileID)}
	if cfg.Index.RespectGitignore {
		w.gitignore = config.LoadGitignoreFiles(cfg.Project.Root)
	}
	return w
}

// Root returns the directory this Walker was constructed for.
func (w *Walker) Root() string { return w.root }

// Walk invokes visit for every file under the root that passes the
// exclude/include/size filters, in filepath.Walk order (no cross-file
// ordering is guaranteed downstream — §5). Returns the count of files
// visited.
func (w *Walker) Walk(visit func(SourceFile) error) (int, error) {
	var count int64
	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries
		}
		rel, rerr := filepath.Rel(w.root, path)
		if rerr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		relSlash := filepath.ToSlash(rel)

		if info.IsDir() {
			if w.excluded(relSlash, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if info.Size() > w.cfg.Index.MaxFileSize {
			return nil
		}
		if w.excluded(relSlash, false) {
			return nil
		}
		if !w.included(relSlash) {
			return nil
		}

		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		sf := NewSourceFile(w.resolveID(relSlash), relSlash, data, info.ModTime())
		if verr := visit(sf); verr != nil {
			return verr
		}
		atomic.AddInt64(&count, 1)
		if w.cfg.Index.MaxFileCount > 0 && int(count) >= w.cfg.Index.MaxFileCount {
			return filepath.SkipAll
		}
		return nil
	})
	if err == filepath.SkipAll {
		err = nil
	}
	return int(count), err
}

// resolveID returns the FileID previously assigned to relSlash, minting and
// recording a new one only the first time that path is seen.
func (w *Walker) resolveID(relSlash string) types.FileID {
	w.idMu.Lock()
	defer w.idMu.Unlock()
	if id, ok := w.ids[relSlash]; ok {
		return id
	}
	w.nextID++
	id := types.FileID(w.nextID)
	w.ids[relSlash] = id
	return id
}

func (w *Walker) excluded(relSlash string, isDir bool) bool {
	for _, pattern := range w.cfg.Exclude {
		if ok, _ := doublestar.Match(pattern, relSlash); ok {
			return true
		}
		// bare directory-name excludes (internal/core's default exclude
		// list style: "node_modules", not "**/node_modules/**")
		if matchesBareName(pattern, relSlash) {
			return true
		}
	}
	if w.gitignore != nil && w.gitignore.Match(relSlash, isDir) {
		return true
	}
	return false
}

func matchesBareName(pattern, relSlash string) bool {
	if pattern == "" {
		return false
	}
	for _, seg := range splitSlash(relSlash) {
		if seg == pattern {
			return true
		}
	}
	return false
}

func splitSlash(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func (w *Walker) included(relSlash string) bool {
	if len(w.cfg.Include) == 0 {
		return true
	}
	for _, pattern := range w.cfg.Include {
		if ok, _ := doublestar.Match(pattern, relSlash); ok {
			return true
		}
	}
	return false
}
