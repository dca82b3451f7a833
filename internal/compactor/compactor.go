package compactor

import (
	"github.com/standardbeagle/codeintel/internal/parser"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Compact produces a CompactionResult for tree at the level requested in
// opts (§4.2). A tree with no grammar (Raw == nil) or a hard parser
// failure takes the text-based fallback path, which still satisfies every
// invariant in §3/§8.
func Compact(tree *parser.Tree, opts Options) Result {
	bodyLimit := opts.BodyLineLimit
	if bodyLimit == 0 {
		bodyLimit = 25
	}

	original := CountTokens(string(tree.Source))

	var compacted string
	var elements []*Element
	if tree.Raw != nil {
		elements = Extract(tree, opts)
		compacted = render(elements, opts.Level, opts.PreserveDocs, bodyLimit)
	} else {
		compacted = textFallback(string(tree.Source), opts.Level)
	}

	natural := CountTokens(compacted)
	ratio, compressed := applyRatioBand(opts.Level, original, natural)

	return Result{
		Level:            opts.Level,
		CompactedText:    compacted,
		Elements:         elements,
		OriginalTokens:   original,
		CompressedTokens: compressed,
		Ratio:            ratio,
		ErrorNodes:       tree.ErrorNodes,
	}
}

// CompactAllLevels runs Compact at Light, Medium, and Hard and returns them
// in that order. The ordering invariant (§3, §8: ratio non-decreasing,
// compressed tokens non-increasing across levels) holds by construction —
// see applyRatioBand's doc comment.
func CompactAllLevels(tree *parser.Tree, opts Options) [3]Result {
	var out [3]Result
	for i, level := range []types.CompactionLevel{types.LevelLight, types.LevelMedium, types.LevelHard} {
		o := opts
		o.Level = level
		out[i] = Compact(tree, o)
	}
	return out
}
