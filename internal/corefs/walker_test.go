package corefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeintel/internal/config"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestWalkerSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main\n")

	cfg := config.Default(root)
	w := NewWalker(cfg)

	var paths []string
	count, err := w.Walk(func(sf SourceFile) error {
		paths = append(paths, sf.Path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"main.go"}, paths)
}

func TestWalkerRespectsMaxFileSize(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 100)
	for i := range big {
		big[i] = 'a'
	}
	writeFile(t, root, "big.go", string(big))

	cfg := config.Default(root)
	cfg.Index.MaxFileSize = 10

	w := NewWalker(cfg)
	count, err := w.Walk(func(SourceFile) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestWalkerAssignsStableDistinctIDs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b.go", "package b\n")

	w := NewWalker(config.Default(root))
	seen := map[uint32]bool{}
	_, err := w.Walk(func(sf SourceFile) error {
		assert.False(t, seen[uint32(sf.ID)], "duplicate FileID assigned")
		seen[uint32(sf.ID)] = true
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}

func TestWalkerReusesIDsAcrossRepeatedWalks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b.go", "package b\n")

	w := NewWalker(config.Default(root))
	first := map[string]uint32{}
	_, err := w.Walk(func(sf SourceFile) error {
		first[sf.Path] = uint32(sf.ID)
		return nil
	})
	require.NoError(t, err)

	writeFile(t, root, "c.go", "package c\n")
	second := map[string]uint32{}
	_, err = w.Walk(func(sf SourceFile) error {
		second[sf.Path] = uint32(sf.ID)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, first["a.go"], second["a.go"], "a.go should keep its FileID across re-walks")
	assert.Equal(t, first["b.go"], second["b.go"], "b.go should keep its FileID across re-walks")
	assert.NotEqual(t, second["a.go"], second["c.go"])
}
