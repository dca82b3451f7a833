// Adapted from internal/config/gitignore.go: a small .gitignore matcher
// good enough to drive ingestion excludes, trading the original's
// regex-cache/pattern-type optimizations for straightforward doublestar
// glob matching since this engine's hot path is the trigram and symbol
// indices, not gitignore evaluation.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GitignoreMatcher matches relative paths against a set of gitignore-style
// patterns collected from one or more .gitignore files.
type GitignoreMatcher struct {
	patterns []gitignorePattern
}

type gitignorePattern struct {
	glob      string
	negate    bool
	dirOnly   bool
	anchored  bool // pattern contained a '/' before the final component
}

// NewGitignoreMatcher parses .gitignore content into a matcher. Lines that
// are blank or start with '#' are skipped, as standard gitignore allows.
func NewGitignoreMatcher(content string) *GitignoreMatcher {
	m := &GitignoreMatcher{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := gitignorePattern{}
		if strings.HasPrefix(line, "!") {
			p.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.Contains(line, "/") {
			p.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		if !p.anchored {
			line = "**/" + line
		}
		p.glob = line
		m.patterns = append(m.patterns, p)
	}
	return m
}

// LoadGitignoreFiles reads every ".gitignore" found by walking from root
// and merges them into one matcher, in directory-traversal order so that
// subdirectory files take precedence, matching git's own override rule.
func LoadGitignoreFiles(root string) *GitignoreMatcher {
	merged := &GitignoreMatcher{}
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if filepath.Base(path) != ".gitignore" {
			return nil
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		merged.patterns = append(merged.patterns, NewGitignoreMatcher(string(data)).patterns...)
		return nil
	})
	return merged
}

// Match reports whether relPath (slash-separated, relative to root) is
// ignored. Later patterns override earlier ones, and a "!"-prefixed
// pattern re-includes a path an earlier pattern excluded.
func (m *GitignoreMatcher) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	ignored := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		ok, _ := doublestar.Match(p.glob, relPath)
		if !ok {
			continue
		}
		ignored = !p.negate
	}
	return ignored
}
