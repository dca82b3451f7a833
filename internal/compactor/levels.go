package compactor

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/codeintel/internal/types"
)

// render produces the compacted text for one level, per §4.2's per-level
// contract:
//   - Light: signatures + type decls + docs; drops bodies longer than
//     bodyLineLimit lines.
//   - Medium: signatures + top-level structure; drops all bodies, keeps
//     only a one-line doc summary.
//   - Hard: first line per declaration (the signature) and nothing else;
//     only top-level declarations are emitted, nested ones are not.
func render(elements []*Element, level types.CompactionLevel, preserveDocs bool, bodyLineLimit int) string {
	var b strings.Builder
	var walk func(els []*Element, depth int)
	walk = func(els []*Element, depth int) {
		for _, el := range els {
			indent := strings.Repeat("  ", depth)
			if preserveDocs && el.Doc != "" && level != types.LevelHard {
				doc := el.Doc
				if level == types.LevelMedium {
					doc = summarize(doc)
				}
				fmt.Fprintf(&b, "%s%s\n", indent, doc)
			}
			fmt.Fprintf(&b, "%s%s\n", indent, el.Signature)

			switch level {
			case types.LevelLight:
				if lineCount(el.Body) <= bodyLineLimit {
					fmt.Fprintf(&b, "%s%s\n", indent, el.Body)
				} else {
					fmt.Fprintf(&b, "%s{ ... }\n", indent)
				}
			case types.LevelMedium:
				if len(el.Children) == 0 {
					fmt.Fprintf(&b, "%s{ ... }\n", indent)
				}
			}
			if level != types.LevelHard {
				walk(el.Children, depth+1)
			}
		}
	}
	walk(elements, 0)
	return b.String()
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func summarize(doc string) string {
	lines := strings.SplitN(strings.TrimSpace(doc), "\n", 2)
	return strings.TrimSpace(lines[0])
}

// applyRatioBand implements §4.2's tie-break policy: when the naturally
// computed ratio falls outside the level's band, clamp to the nearest
// boundary and recompute compressedTokens from the clamped ratio, still
// bounded above by originalTokens. Because the three levels' bands are
// disjoint and strictly increasing (Light < Medium < Hard), clamping each
// level independently into its own band is sufficient to guarantee the
// cross-level ordering invariant (§3, §8) without comparing levels
// against each other.
func applyRatioBand(level types.CompactionLevel, originalTokens, naturalCompressed int) (ratio float64, compressedTokens int) {
	if originalTokens == 0 {
		return 0, 0
	}
	ratio = 1 - float64(naturalCompressed)/float64(originalTokens)
	band := level.Band()
	switch {
	case ratio < band.Min:
		ratio = band.Min
	case ratio > band.Max:
		ratio = band.Max
	default:
		compressedTokens = naturalCompressed
		return ratio, clampTokens(compressedTokens, originalTokens)
	}
	compressedTokens = int(float64(originalTokens) * (1 - ratio))
	return ratio, clampTokens(compressedTokens, originalTokens)
}

func clampTokens(compressed, original int) int {
	if compressed > original {
		return original
	}
	if compressed < 0 {
		return 0
	}
	return compressed
}
