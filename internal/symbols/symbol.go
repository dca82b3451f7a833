// Package symbols implements the Symbol Layer (component C): a concurrent
// identifier-to-declaration-site index rebuilt incrementally as files are
// (re)ingested. Grounded on internal/core/symbol_store.go
// (parallel-array storage keyed by an index map) and
// internal/semantic/fuzzy_matcher.go (go-edlib driven fuzzy lookup).
package symbols

import "github.com/standardbeagle/codeintel/internal/types"

// Symbol is a named declaration's metadata record (§3 "Symbol"). Its
// identity is (Name, File, Span.Start) — re-ingesting a file removes every
// prior Symbol for that file before inserting its replacements, so no stale
// entry with a matching key can survive a re-ingestion.
type Symbol struct {
	Name       string
	Kind       types.ElementKind
	File       types.FileID
	Span       types.ByteSpan
	LineCol    types.LineColSpan
	Visibility types.Visibility
	Scope      string // enclosing function/type name, empty at top level
}

// MatchMode selects how find_symbol compares the query against stored names.
type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchPrefix
	MatchFuzzy
)
