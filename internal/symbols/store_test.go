package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/codeintel/internal/types"
)

func sym(name string, file types.FileID) Symbol {
	return Symbol{Name: name, Kind: types.KindFunction, File: file, Visibility: types.VisPublic}
}

func TestExactLookupReturnsOneMatch(t *testing.T) {
	s := New()
	s.ReplaceFile(1, []Symbol{sym("calculate", 1)})

	got := s.FindSymbol("calculate", MatchExact)
	assert.Len(t, got, 1)
	assert.Equal(t, types.KindFunction, got[0].Kind)
	assert.Equal(t, types.FileID(1), got[0].File)
}

func TestExactLookupIsCaseInsensitive(t *testing.T) {
	s := New()
	s.ReplaceFile(1, []Symbol{sym("Calculate", 1)})
	assert.Len(t, s.FindSymbol("calculate", MatchExact), 1)
	assert.Len(t, s.FindSymbol("CALCULATE", MatchExact), 1)
}

func TestReplaceFileRemovesStaleSymbols(t *testing.T) {
	s := New()
	s.ReplaceFile(1, []Symbol{sym("old_name", 1)})
	assert.Len(t, s.FindSymbol("old_name", MatchExact), 1)

	s.ReplaceFile(1, []Symbol{sym("new_name", 1)})
	assert.Len(t, s.FindSymbol("old_name", MatchExact), 0)
	assert.Len(t, s.FindSymbol("new_name", MatchExact), 1)
}

func TestReplaceFileDoesNotAffectOtherFiles(t *testing.T) {
	s := New()
	s.ReplaceFile(1, []Symbol{sym("shared_name", 1)})
	s.ReplaceFile(2, []Symbol{sym("shared_name", 2)})

	s.ReplaceFile(1, nil)
	got := s.FindSymbol("shared_name", MatchExact)
	assert.Len(t, got, 1)
	assert.Equal(t, types.FileID(2), got[0].File)
}

func TestPrefixLookup(t *testing.T) {
	s := New()
	s.ReplaceFile(1, []Symbol{sym("parse_json", 1), sym("parse_yaml", 1), sym("format_json", 1)})

	got := s.FindSymbol("parse_", MatchPrefix)
	names := map[string]bool{}
	for _, sym := range got {
		names[sym.Name] = true
	}
	assert.True(t, names["parse_json"])
	assert.True(t, names["parse_yaml"])
	assert.False(t, names["format_json"])
}

func TestFuzzyLookupRanksByJaroWinklerSimilarity(t *testing.T) {
	s := New()
	s.ReplaceFile(1, []Symbol{
		sym("parse_json", 1),
		sym("parse_yaml", 1),
		sym("format_json", 1),
	})

	got := s.FindSymbol("parsjson", MatchFuzzy)
	require := func(cond bool, msg string) {
		if !cond {
			t.Fatal(msg)
		}
	}
	require(len(got) >= 1, "expected at least one fuzzy match")
	assert.Equal(t, "parse_json", got[0].Name)

	idxFormat := -1
	idxYaml := -1
	for i, r := range got {
		if r.Name == "format_json" {
			idxFormat = i
		}
		if r.Name == "parse_yaml" {
			idxYaml = i
		}
	}
	if idxYaml != -1 && idxFormat != -1 {
		assert.Less(t, idxYaml, idxFormat)
	}
}

func TestFuzzyLookupBoundScalesWithNameLength(t *testing.T) {
	assert.Equal(t, 1, editBound(3))
	assert.Equal(t, 1, editBound(4))
	assert.Equal(t, 2, editBound(6))
	assert.Equal(t, 6, editBound(18))
}

func TestSizeReflectsAllInsertedSymbols(t *testing.T) {
	s := New()
	s.ReplaceFile(1, []Symbol{sym("a", 1), sym("b", 1)})
	s.ReplaceFile(2, []Symbol{sym("c", 2)})
	assert.Equal(t, 3, s.Size())
}
