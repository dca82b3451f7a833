package compactor

import "github.com/standardbeagle/codeintel/internal/types"

// Element is an ExtractedElement (§3): a declared entity the compactor
// found while walking a SyntaxTree. Elements may nest (a Method's Parent
// is its enclosing Type).
type Element struct {
	Kind       types.ElementKind
	Name       string
	Visibility types.Visibility
	Doc        string
	Signature  string
	Body       string // full body text, before any level drops it
	Span       types.ByteSpan
	LineCol    types.LineColSpan
	Children   []*Element
}

// Result is a CompactionResult (§3): one file's compacted projection plus
// the token-count bookkeeping that backs the ordering invariant (§8).
type Result struct {
	Level             types.CompactionLevel
	CompactedText     string
	Elements          []*Element
	OriginalTokens    int
	CompressedTokens  int
	Ratio             float64
	ErrorNodes        int
}
