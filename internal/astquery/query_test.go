package astquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeintel/internal/parser"
	"github.com/standardbeagle/codeintel/internal/types"
)

const sampleGo = `package demo

func Calculate(x, y int) int {
	total := add(x, y)
	return add(total, 1)
}

func add(a, b int) int {
	return a + b
}
`

func TestFindDefinitionLocatesDeclaration(t *testing.T) {
	pool := parser.New()
	tree := pool.Parse(types.LangGo, []byte(sampleGo))

	got := FindDefinition(tree, "add")
	require.Len(t, got, 1)
	assert.Equal(t, "add", got[0].CaptureText["def"])
}

func TestFindDefinitionMissingNameReturnsEmpty(t *testing.T) {
	pool := parser.New()
	tree := pool.Parse(types.LangGo, []byte(sampleGo))

	assert.Empty(t, FindDefinition(tree, "doesNotExist"))
}

func TestFindReferencesFindsEveryOccurrence(t *testing.T) {
	pool := parser.New()
	tree := pool.Parse(types.LangGo, []byte(sampleGo))

	got := FindReferences(tree, "add")
	// declaration name + 2 call-site identifiers = 3 occurrences of "add"
	assert.GreaterOrEqual(t, len(got), 3)
}

func TestParseSelectorRejectsEmptyQuery(t *testing.T) {
	_, err := Parse("   ")
	assert.Error(t, err)
}

func TestParseSelectorAcceptsCaptureAndOperators(t *testing.T) {
	sel, err := Parse("function_declaration@fn > identifier@name")
	require.NoError(t, err)
	require.Len(t, sel.segments, 2)
	assert.Equal(t, "function_declaration", sel.segments[0].kind)
	assert.Equal(t, "fn", sel.segments[0].capture)
	assert.False(t, sel.segments[1].descend)
	assert.Equal(t, "identifier", sel.segments[1].kind)
}

func TestEvalDirectChildSelector(t *testing.T) {
	pool := parser.New()
	tree := pool.Parse(types.LangGo, []byte(sampleGo))

	sel, err := Parse("function_declaration@fn > identifier@name")
	require.NoError(t, err)
	got := Eval(tree, sel)
	assert.Len(t, got, 2)
	for _, r := range got {
		_, ok := r.Captures["fn"]
		assert.True(t, ok)
	}
}

func TestEvalDescendantSelectorCapturesCallExpression(t *testing.T) {
	pool := parser.New()
	tree := pool.Parse(types.LangGo, []byte(sampleGo))

	sel, err := Parse("function_declaration >> call_expression@call")
	require.NoError(t, err)
	got := Eval(tree, sel)
	assert.NotEmpty(t, got)
	for _, r := range got {
		assert.NotEmpty(t, r.CaptureText["call"])
	}
}

func TestResultsCarryAncestorKindChain(t *testing.T) {
	pool := parser.New()
	tree := pool.Parse(types.LangGo, []byte(sampleGo))

	got := FindDefinition(tree, "add")
	require.Len(t, got, 1)
	assert.Contains(t, got[0].AncestorKinds, "source_file")
}
