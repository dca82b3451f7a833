// Package fulltext implements the Full-Text Layer (component D): an
// inverted index over tokenized file content and symbol metadata, with
// per-field BM25 ranking. Grounded on internal/core/trigram.go (per-shard
// postings, invalidation-on-file-change, a bounded search-result cache)
// generalized from single-field trigrams to the multi-field token index
// §4.4 requires, and on internal/search/engine.go for how those postings
// feed a ranked result list. Token normalization borrows
// internal/semantic/stemmer.go's porter2 wrapper.
package fulltext

// Field is one of the per-document fields the index maintains (§4.4).
// ContainingFunction and ContainingType are recorded per line, since a
// single file's lines can nest inside different enclosing declarations.
type Field int

const (
	FieldPath Field = iota
	FieldContent
	FieldSymbols
	FieldLanguage
	FieldContainingFunction
	FieldContainingType
)

func (f Field) String() string {
	switch f {
	case FieldPath:
		return "path"
	case FieldContent:
		return "content"
	case FieldSymbols:
		return "symbols"
	case FieldLanguage:
		return "language"
	case FieldContainingFunction:
		return "containing_function"
	case FieldContainingType:
		return "containing_type"
	default:
		return "unknown"
	}
}

// Boost implements the ranking priority §4.4 names: symbols > path >
// content. Language/scope fields participate in filtering more than
// ranking, so they carry a modest, equal boost.
func (f Field) Boost() float64 {
	switch f {
	case FieldSymbols:
		return 3.0
	case FieldPath:
		return 2.0
	case FieldContent:
		return 1.0
	default:
		return 1.0
	}
}

var allFields = []Field{FieldPath, FieldContent, FieldSymbols, FieldLanguage, FieldContainingFunction, FieldContainingType}
