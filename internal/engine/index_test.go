package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeintel/internal/config"
	"github.com/standardbeagle/codeintel/internal/retrieval"
	"github.com/standardbeagle/codeintel/internal/types"
)

const sampleGoSource = `package sample

// Greet returns a friendly greeting for name.
func Greet(name string) string {
	return "hello " + name
}

func caller() string {
	return Greet("world")
}
`

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestIndexRootIngestsEveryFile(t *testing.T) {
	root := writeProject(t, map[string]string{
		"sample.go": sampleGoSource,
	})
	cfg := config.Default(root)
	ix, err := New(cfg)
	require.NoError(t, err)

	count, err := ix.IndexRoot(root)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIndexFilePopulatesSymbolFullTextAndVectorLayers(t *testing.T) {
	root := writeProject(t, map[string]string{
		"sample.go": sampleGoSource,
	})
	cfg := config.Default(root)
	ix, err := New(cfg)
	require.NoError(t, err)

	_, err = ix.IndexRoot(root)
	require.NoError(t, err)

	results := ix.Retrieval().Search(retrieval.Query{Kind: retrieval.KindSymbolExact, Text: "Greet"})
	require.NotEmpty(t, results)
	assert.Equal(t, "Greet", results[0].Symbol.Name)

	ftResults := ix.Retrieval().Search(retrieval.Query{Kind: retrieval.KindFullText, Text: "greeting"})
	assert.NotEmpty(t, ftResults)

	semResults := ix.Retrieval().Search(retrieval.Query{Kind: retrieval.KindSemantic, Text: "Greet"})
	assert.NotEmpty(t, semResults)
}

func TestRemoveFileRetractsSymbols(t *testing.T) {
	root := writeProject(t, map[string]string{
		"sample.go": sampleGoSource,
	})
	cfg := config.Default(root)
	ix, err := New(cfg)
	require.NoError(t, err)

	_, err = ix.IndexRoot(root)
	require.NoError(t, err)

	ix.RemoveFile("sample.go")

	results := ix.Retrieval().Search(retrieval.Query{Kind: retrieval.KindSymbolExact, Text: "Greet"})
	assert.Empty(t, results)
}

func TestReindexingSameFileReplacesRatherThanDuplicatesSymbols(t *testing.T) {
	root := writeProject(t, map[string]string{
		"sample.go": sampleGoSource,
	})
	cfg := config.Default(root)
	ix, err := New(cfg)
	require.NoError(t, err)

	_, err = ix.IndexRoot(root)
	require.NoError(t, err)
	_, err = ix.IndexRoot(root)
	require.NoError(t, err)

	results := ix.Retrieval().Search(retrieval.Query{Kind: retrieval.KindSymbolExact, Text: "Greet"})
	assert.Len(t, results, 1)
}

func TestReindexingSameFileReplacesRatherThanDuplicatesVectors(t *testing.T) {
	root := writeProject(t, map[string]string{
		"sample.go": sampleGoSource,
	})
	cfg := config.Default(root)
	ix, err := New(cfg)
	require.NoError(t, err)

	_, err = ix.IndexRoot(root)
	require.NoError(t, err)
	firstDocs := append([]types.DocumentId(nil), ix.fileDocs[ix.pathToFile["sample.go"]]...)
	require.NotEmpty(t, firstDocs)

	_, err = ix.IndexRoot(root)
	require.NoError(t, err)
	secondDocs := ix.fileDocs[ix.pathToFile["sample.go"]]

	assert.Equal(t, firstDocs, secondDocs, "re-ingesting the same elements should reuse DocumentIds, not mint new ones")

	semResults := ix.Retrieval().Search(retrieval.Query{Kind: retrieval.KindSemantic, Text: "Greet"})
	fileID := ix.pathToFile["sample.go"]
	var hitsForFile int
	for _, r := range semResults {
		if r.File == fileID {
			hitsForFile++
		}
	}
	assert.LessOrEqual(t, hitsForFile, len(firstDocs), "no more live vector hits than tracked Documents for the file")
}

func TestRemoveFileRetractsVectors(t *testing.T) {
	root := writeProject(t, map[string]string{
		"sample.go": sampleGoSource,
	})
	cfg := config.Default(root)
	ix, err := New(cfg)
	require.NoError(t, err)

	_, err = ix.IndexRoot(root)
	require.NoError(t, err)
	require.NotEmpty(t, ix.fileDocs[ix.pathToFile["sample.go"]])

	fileID := ix.pathToFile["sample.go"]
	ix.RemoveFile("sample.go")

	assert.Empty(t, ix.fileDocs)
	semResults := ix.Retrieval().Search(retrieval.Query{Kind: retrieval.KindSemantic, Text: "Greet"})
	for _, r := range semResults {
		assert.NotEqual(t, fileID, r.File)
	}
}

func TestFileIDStableAcrossReingestion(t *testing.T) {
	root := writeProject(t, map[string]string{
		"sample.go": sampleGoSource,
		"other.go":  "package sample\n\nfunc Other() {}\n",
	})
	cfg := config.Default(root)
	ix, err := New(cfg)
	require.NoError(t, err)

	_, err = ix.IndexRoot(root)
	require.NoError(t, err)
	firstID := ix.pathToFile["sample.go"]

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.go"), []byte("package sample\n\nfunc New() {}\n"), 0o644))

	_, err = ix.IndexRoot(root)
	require.NoError(t, err)
	secondID := ix.pathToFile["sample.go"]

	assert.Equal(t, firstID, secondID, "sample.go must keep its FileID even after the file set changes")
}
