package retrieval

import (
	"sort"
	"time"

	"github.com/standardbeagle/codeintel/internal/symbols"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Hybrid ranking weights (§4.8 "score = w_sim · sim + w_kw · kw + w_lang ·
// langMatch + w_qual · quality"). The weighting leaves the exact
// coefficients unspecified; chosen so semantic and keyword signals
// dominate (since they carry the most discriminating information about
// relevance) with language match and per-layer quality acting as smaller
// tie-breaking nudges, in the spirit of search_coordinator.go's
// calculateQualityScore weighting index results by priority order rather
// than treating every index equally.
const (
	weightSimilarity = 0.45
	weightKeyword    = 0.30
	weightLangMatch  = 0.15
	weightQuality    = 0.10
)

// layerQuality mirrors search_coordinator.go's priority-ordered quality
// score (calculateQualityScore): layers that answer a
// general query with more structural confidence rank higher.
var layerQuality = map[Layer]float64{
	LayerSymbols:         1.0,
	LayerASTQuery:        0.9,
	LayerFullText:        0.7,
	LayerVector:          0.6,
	LayerPatternFallback: 0.3,
}

type hybridCandidate struct {
	key        candidateKey
	result     Result
	sim        float64
	kw         float64
	bestLayerQ float64
}

type candidateKey struct {
	file  types.FileID
	start int
	end   int
}

func keyOf(r Result) candidateKey {
	return candidateKey{file: r.File, start: r.Span.Start, end: r.Span.End}
}

// searchHybrid answers a general query by running the fuzzy symbol,
// full-text, semantic and pattern-fallback layers (the AST query layer is
// not run), merging hits
// on (file, span), and combining each layer's contribution into the
// weighted formula (§4.8). Ties break by ascending DocumentId (falling back
// to FileID when DocumentId is zero, i.e. the hit has no vector-store
// identity) for determinism.
func (e *Engine) searchHybrid(q Query) []Result {
	start := time.Now()

	unbounded := q
	unbounded.Limit = q.limit() + q.Offset + 50
	unbounded.Offset = 0

	layerResults := [][]Result{
		e.searchSymbol(symbols.MatchFuzzy)(unbounded),
		e.searchFulltext(unbounded),
		e.searchSemantic(unbounded),
		e.searchPatternFallback(unbounded),
	}

	candidates := make(map[candidateKey]*hybridCandidate)
	for _, layer := range layerResults {
		for _, r := range layer {
			k := keyOf(r)
			c, ok := candidates[k]
			if !ok {
				c = &hybridCandidate{key: k, result: r}
				candidates[k] = c
			}
			switch r.Layer {
			case LayerVector:
				if r.Relevance > c.sim {
					c.sim = r.Relevance
				}
			default:
				if r.Relevance > c.kw {
					c.kw = r.Relevance
				}
			}
			if lq := layerQuality[r.Layer]; lq > c.bestLayerQ {
				c.bestLayerQ = lq
				// Prefer the richer descriptor (symbol/excerpt/documentID)
				// from whichever layer is most structurally authoritative.
				c.result = r
			}
		}
	}

	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		langMatch := 0.0
		if matchesLanguageFilterForFile(e, c.result.File, q.Filters) {
			langMatch = 1.0
		}
		score := weightSimilarity*c.sim + weightKeyword*c.kw + weightLangMatch*langMatch + weightQuality*c.bestLayerQ

		res := c.result
		res.Relevance = score
		res.Layer = LayerHybrid
		res.Latency = time.Since(start)
		out = append(out, res)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].File < out[j].File
	})

	if q.Offset >= len(out) {
		return nil
	}
	end := q.Offset + q.limit()
	if end > len(out) {
		end = len(out)
	}
	return out[q.Offset:end]
}

func matchesLanguageFilterForFile(e *Engine, file types.FileID, f Filters) bool {
	if f.Language == "" {
		return true
	}
	fr, ok := e.fileOf(file)
	if !ok {
		return false
	}
	return fr.language == f.Language
}
