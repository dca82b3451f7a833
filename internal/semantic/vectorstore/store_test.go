package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeintel/internal/semantic"
	"github.com/standardbeagle/codeintel/internal/types"
)

func unitVector(dims int, hot int) semantic.Embedding {
	v := make(semantic.Embedding, dims)
	v[hot%dims] = 1.0
	return v
}

func TestUpsertAssignsNewDocumentIdWhenZero(t *testing.T) {
	s := New(0, 8)
	id, err := s.Upsert(0, semantic.Chunk{CanonicalPath: "a.go"}, unitVector(8, 0))
	require.NoError(t, err)
	assert.NotZero(t, id)

	id2, err := s.Upsert(0, semantic.Chunk{CanonicalPath: "b.go"}, unitVector(8, 1))
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestSearchFindsExactMatch(t *testing.T) {
	s := New(0, 8)
	id, err := s.Upsert(0, semantic.Chunk{CanonicalPath: "needle.go"}, unitVector(8, 0))
	require.NoError(t, err)
	_, err = s.Upsert(0, semantic.Chunk{CanonicalPath: "other.go"}, unitVector(8, 4))
	require.NoError(t, err)

	results, err := s.Search(unitVector(8, 0), 1, Filters{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-4)
}

func TestUpsertReplaceKeepsSameDocumentId(t *testing.T) {
	s := New(0, 8)
	id, err := s.Upsert(0, semantic.Chunk{CanonicalPath: "a.go", Language: types.LangGo}, unitVector(8, 0))
	require.NoError(t, err)

	_, err = s.Upsert(id, semantic.Chunk{CanonicalPath: "a.go", Language: types.LangPython}, unitVector(8, 1))
	require.NoError(t, err)

	chunk, ok := s.Chunk(id)
	require.True(t, ok)
	assert.Equal(t, types.LangPython, chunk.Language)
	assert.Equal(t, 1, s.Count())
}

func TestSearchFiltersByLanguage(t *testing.T) {
	s := New(0, 8)
	goID, err := s.Upsert(0, semantic.Chunk{CanonicalPath: "a.go", Language: types.LangGo}, unitVector(8, 0))
	require.NoError(t, err)
	_, err = s.Upsert(0, semantic.Chunk{CanonicalPath: "b.py", Language: types.LangPython}, unitVector(8, 0))
	require.NoError(t, err)

	results, err := s.Search(unitVector(8, 0), 5, Filters{Language: types.LangGo})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, goID, results[0].ID)
}

func TestSearchFiltersByPathSubstring(t *testing.T) {
	s := New(0, 8)
	wantID, err := s.Upsert(0, semantic.Chunk{CanonicalPath: "pkg/server/handler.go"}, unitVector(8, 0))
	require.NoError(t, err)
	_, err = s.Upsert(0, semantic.Chunk{CanonicalPath: "pkg/client/handler.go"}, unitVector(8, 0))
	require.NoError(t, err)

	results, err := s.Search(unitVector(8, 0), 5, Filters{PathHas: "server/"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, wantID, results[0].ID)
}

func TestMaxDocumentsEvictsLeastRecentlyAccessed(t *testing.T) {
	s := New(2, 8)
	first, err := s.Upsert(0, semantic.Chunk{CanonicalPath: "first.go"}, unitVector(8, 0))
	require.NoError(t, err)
	second, err := s.Upsert(0, semantic.Chunk{CanonicalPath: "second.go"}, unitVector(8, 1))
	require.NoError(t, err)

	// Touch first via search so it's more recently used than second.
	_, err = s.Search(unitVector(8, 0), 1, Filters{})
	require.NoError(t, err)

	third, err := s.Upsert(0, semantic.Chunk{CanonicalPath: "third.go"}, unitVector(8, 2))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Count())
	_, secondStillPresent := s.Chunk(second)
	assert.False(t, secondStillPresent, "second should have been evicted as least recently used")
	_, firstStillPresent := s.Chunk(first)
	assert.True(t, firstStillPresent)
	_, thirdStillPresent := s.Chunk(third)
	assert.True(t, thirdStillPresent)
}

func TestRemoveDeletesDocument(t *testing.T) {
	s := New(0, 8)
	id, err := s.Upsert(0, semantic.Chunk{CanonicalPath: "a.go"}, unitVector(8, 0))
	require.NoError(t, err)

	s.Remove(id)
	_, ok := s.Chunk(id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Count())
}

func TestSearchOnEmptyStoreReturnsNoResults(t *testing.T) {
	s := New(0, 8)
	results, err := s.Search(unitVector(8, 0), 5, Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpsertRejectsWrongDimensionEmbedding(t *testing.T) {
	s := New(0, 8)
	_, err := s.Upsert(0, semantic.Chunk{}, make(semantic.Embedding, 4))
	assert.Error(t, err)
}

func TestSearchRejectsWrongDimensionQuery(t *testing.T) {
	s := New(0, 8)
	_, err := s.Upsert(0, semantic.Chunk{}, unitVector(8, 0))
	require.NoError(t, err)

	_, err = s.Search(make(semantic.Embedding, 4), 1, Filters{})
	assert.Error(t, err)
}
