// Package retrieval implements the Retrieval Engine (component I): a
// strategy dispatcher that routes a SearchQuery to the layer(s) best suited
// to answer it, falls back along a per-kind ladder when the primary layer
// comes up empty, and — for general queries — blends every layer's
// normalized scores into one ranked list. Grounded on
// internal/search/search_coordinator.go (index-availability-driven
// dispatch, quality-weighted scoring) and
// internal/search/requirements_analyzer.go (pattern classification feeding
// a strategy decision), adapted from that index-availability gate to the
// fixed dispatch table §4.8 specifies.
package retrieval

import (
	"time"

	"github.com/standardbeagle/codeintel/internal/symbols"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Kind discriminates a SearchQuery's intent (§3 "SearchQuery").
type Kind string

const (
	KindSymbolExact Kind = "symbol_exact"
	KindSymbolFuzzy Kind = "symbol_fuzzy"
	KindDefinition  Kind = "definition"
	KindReferences  Kind = "references"
	KindFullText    Kind = "full_text"
	KindSemantic    Kind = "semantic"
	KindGeneral     Kind = "general"
)

// Layer names which subsystem produced a Result, carried so callers and
// telemetry can tell a symbol-table hit from a vector-search hit.
type Layer string

const (
	LayerSymbols         Layer = "symbols"
	LayerFullText        Layer = "fulltext"
	LayerASTQuery        Layer = "astquery"
	LayerPatternFallback Layer = "pattern_fallback"
	LayerVector          Layer = "vector"
	LayerHybrid          Layer = "hybrid"
)

// Filters narrows a query to a language, a path prefix, and/or case
// sensitivity (§3 "SearchQuery" filters; fuzzy is carried by Kind instead).
type Filters struct {
	Language      types.Language
	PathPrefix    string
	CaseSensitive bool
}

// Query is one search request (§3 "SearchQuery"). Text holds the symbol
// name for symbol/definition/references kinds, the query string for
// full-text, and the natural-language or code snippet for semantic/general.
type Query struct {
	Kind    Kind
	Text    string
	Filters Filters
	Limit   int
	Offset  int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return 20
	}
	return q.Limit
}

// Result is one ranked hit (§3 "SearchResult"). Symbol is set on
// symbol-layer hits and DocumentID on vector hits; full-text, AST-query and
// pattern-fallback hits carry neither. File/Span locate the hit in source
// (Span is zero for full-text hits).
type Result struct {
	Symbol          *symbols.Symbol
	DocumentID      types.DocumentId
	File            types.FileID
	Span            types.ByteSpan
	Relevance       float64
	Excerpt         string
	ContainingScope string
	Layer           Layer
	Latency         time.Duration
}
