package fulltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeintel/internal/types"
)

func doc(file types.FileID, path string, lines []string, symbols []string) *Document {
	recs := make([]LineRecord, len(lines))
	for i, l := range lines {
		recs[i] = LineRecord{Text: l}
	}
	return &Document{File: file, Path: path, Language: types.LangGo, Symbols: symbols, Lines: recs}
}

func TestBooleanMustRequiresAllTerms(t *testing.T) {
	idx := New()
	idx.IndexDocument(doc(1, "a.go", []string{"func parseJSON(data []byte) error {", "return nil", "}"}, []string{"parseJSON"}))
	idx.IndexDocument(doc(2, "b.go", []string{"func parseYAML(data []byte) error {", "return nil", "}"}, []string{"parseYAML"}))

	got := idx.Search(Query{Must: []string{"parse", "json"}})
	require.Len(t, got, 1)
	assert.Equal(t, types.FileID(1), got[0].File)
}

func TestMustNotExcludesDocuments(t *testing.T) {
	idx := New()
	idx.IndexDocument(doc(1, "a.go", []string{"func parse() {}"}, nil))
	idx.IndexDocument(doc(2, "b.go", []string{"func parse() { deprecated() }"}, nil))

	got := idx.Search(Query{Must: []string{"parse"}, MustNot: []string{"deprecated"}})
	require.Len(t, got, 1)
	assert.Equal(t, types.FileID(1), got[0].File)
}

func TestPhraseQueryRequiresAdjacency(t *testing.T) {
	idx := New()
	idx.IndexDocument(doc(1, "a.go", []string{"quick brown fox"}, nil))
	idx.IndexDocument(doc(2, "b.go", []string{"quick red fox brown"}, nil))

	got := idx.Search(Query{Phrase: "brown fox"})
	require.Len(t, got, 1)
	assert.Equal(t, types.FileID(1), got[0].File)
}

func TestWildcardQueryExpandsPrefix(t *testing.T) {
	idx := New()
	idx.IndexDocument(doc(1, "a.go", []string{"func parseJSON() {}"}, []string{"parseJSON"}))
	idx.IndexDocument(doc(2, "b.go", []string{"func formatJSON() {}"}, []string{"formatJSON"}))

	got := idx.Search(Query{Should: []string{"pars*"}, Fields: []Field{FieldSymbols}})
	require.Len(t, got, 1)
	assert.Equal(t, types.FileID(1), got[0].File)
}

func TestSymbolsFieldOutranksContentForSameTerm(t *testing.T) {
	idx := New()
	// file 1: term only in symbols (high boost); file 2: term only in content (low boost), repeated to build tf.
	idx.IndexDocument(doc(1, "a.go", []string{"nothing interesting here"}, []string{"calculate"}))
	idx.IndexDocument(doc(2, "b.go", []string{"calculate calculate calculate"}, nil))

	got := idx.Search(Query{Should: []string{"calculate"}})
	require.Len(t, got, 2)
	assert.Equal(t, types.FileID(1), got[0].File)
}

func TestReindexingFileRemovesStaleSymbolPostings(t *testing.T) {
	idx := New()
	idx.IndexDocument(doc(1, "a.go", []string{"func oldName() {}"}, []string{"oldName"}))
	require.Len(t, idx.Search(Query{Must: []string{"oldname"}, Fields: []Field{FieldSymbols}}), 1)

	idx.IndexDocument(doc(1, "a.go", []string{"func newName() {}"}, []string{"newName"}))
	assert.Len(t, idx.Search(Query{Must: []string{"oldname"}, Fields: []Field{FieldSymbols}}), 0)
	assert.Len(t, idx.Search(Query{Must: []string{"newname"}, Fields: []Field{FieldSymbols}}), 1)
}

func TestContainingFunctionFieldIsSearchable(t *testing.T) {
	idx := New()
	d := &Document{
		File:     1,
		Path:     "a.go",
		Language: types.LangGo,
		Lines: []LineRecord{
			{Text: "func Calculate(x int) int {", ContainingFunction: "Calculate"},
			{Text: "  return x * 2", ContainingFunction: "Calculate"},
			{Text: "}", ContainingFunction: "Calculate"},
		},
	}
	idx.IndexDocument(d)

	got := idx.Search(Query{Must: []string{"calculate"}, Fields: []Field{FieldContainingFunction}})
	require.Len(t, got, 1)
	assert.ElementsMatch(t, []int{1, 2, 3}, got[0].Lines)
}

func TestLanguageFieldFiltersByExactToken(t *testing.T) {
	idx := New()
	idx.IndexDocument(&Document{File: 1, Path: "a.go", Language: types.LangGo, Lines: []LineRecord{{Text: "x"}}})
	idx.IndexDocument(&Document{File: 2, Path: "b.py", Language: types.LangPython, Lines: []LineRecord{{Text: "x"}}})

	got := idx.Search(Query{Must: []string{"go"}, Fields: []Field{FieldLanguage}})
	require.Len(t, got, 1)
	assert.Equal(t, types.FileID(1), got[0].File)
}

func TestDocCountTracksIndexedFiles(t *testing.T) {
	idx := New()
	assert.Equal(t, 0, idx.DocCount())
	idx.IndexDocument(doc(1, "a.go", []string{"x"}, nil))
	idx.IndexDocument(doc(2, "b.go", []string{"y"}, nil))
	assert.Equal(t, 2, idx.DocCount())

	idx.RemoveDocument(1)
	assert.Equal(t, 1, idx.DocCount())
}
