// Package semantic holds the data model shared by the Embedding Engine
// (internal/semantic/embedding) and the Vector Store
// (internal/semantic/vectorstore): Chunk, Embedding, and Document (§3).
// Kept as a small leaf package so the two subpackages can depend on the
// same types without depending on each other.
package semantic

import "github.com/standardbeagle/codeintel/internal/types"

// Chunk is the embedding unit carved from source (§3 "Chunk"): a single
// ExtractedElement when possible, otherwise a size-bounded slice of a
// file's text.
type Chunk struct {
	File             types.FileID
	Span             types.ByteSpan
	Language         types.Language
	CanonicalPath    string // e.g. "pkg/server.Server.Handle"
	Text             string
}

// EmbeddingDimensions is the fixed vector length §3 suggests ("e.g.,
// 768"); kept as a named constant so every producer/consumer of Embedding
// agrees without threading a parameter through every call site.
const EmbeddingDimensions = 768

// Embedding is a fixed-length, cosine-normalized float vector (§3
// "Embedding").
type Embedding []float32

// Document is a Chunk plus its Embedding and metadata, as stored in the
// Vector Store (§3 "Document"). DocumentIds are assigned by the store on
// insert, not by the embedding engine.
type Document struct {
	ID        types.DocumentId
	Chunk     Chunk
	Embedding Embedding
}
