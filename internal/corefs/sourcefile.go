// Package corefs owns SourceFile identity and the filesystem walk that
// discovers them (§3 "SourceFile", §6 "File-system input"). It is grounded
// on internal/core/file_loader.go (extension/exclude
// filtering) and internal/indexing/pipeline_scanner.go (walk + size caps),
// generalized from a fixed extension allowlist to the full 27-language
// table in internal/types.
package corefs

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/codeintel/internal/types"
)

// SourceFile is an immutable snapshot of one file's bytes and identity.
// A content change produces a new SourceFile value with a new ContentHash;
// the FileID is stable across re-ingestion of the same path (§3
// "Lifecycle").
type SourceFile struct {
	ID         types.FileID
	Path       string // relative to the project root
	Language   types.Language
	Bytes      []byte
	Hash       types.ContentHash
	ModifiedAt time.Time
}

// HashBytes computes the ContentHash used throughout the engine to key
// caches and detect content changes (xxhash64, matching
// internal/core/file_loader.go's choice of github.com/cespare/xxhash/v2
// for its own trigram/content hashing).
func HashBytes(b []byte) types.ContentHash {
	return types.ContentHash(xxhash.Sum64(b))
}

// NewSourceFile builds a SourceFile from disk bytes, detecting language
// from the path and, when the extension is unrecognized, the first line.
func NewSourceFile(id types.FileID, relPath string, data []byte, modTime time.Time) SourceFile {
	firstLine := data
	if idx := indexByte(data, '\n'); idx >= 0 {
		firstLine = data[:idx]
	}
	return SourceFile{
		ID:         id,
		Path:       relPath,
		Language:   types.DetectLanguage(relPath, firstLine),
		Bytes:      data,
		Hash:       HashBytes(data),
		ModifiedAt: modTime,
	}
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

