package retrieval

import (
	"sort"
	"sync"
	"time"

	"github.com/standardbeagle/codeintel/internal/astquery"
	"github.com/standardbeagle/codeintel/internal/fulltext"
	"github.com/standardbeagle/codeintel/internal/parser"
	"github.com/standardbeagle/codeintel/internal/patternfallback"
	"github.com/standardbeagle/codeintel/internal/semantic"
	"github.com/standardbeagle/codeintel/internal/semantic/embedding"
	"github.com/standardbeagle/codeintel/internal/semantic/vectorstore"
	"github.com/standardbeagle/codeintel/internal/symbols"
	"github.com/standardbeagle/codeintel/internal/types"
)

// fileRecord is what the engine remembers about one ingested file, enough
// to run AST queries and the regex fallback against it without re-reading
// disk (§4.8 consults "the appropriate layers", all of which are in-memory
// structures the orchestrator populates at ingestion time).
type fileRecord struct {
	path     string
	language types.Language
	content  []byte
	tree     *parser.Tree
}

// Engine is the Retrieval Engine (I): a thin coordinator holding references
// to the Symbol Layer (C), Full-Text Layer (D), AST Query Layer (E),
// Pattern Fallback (F), and the Vector Store / Embedding Engine (G/H), plus
// enough file bookkeeping to run E and F against the right bytes.
type Engine struct {
	Symbols    *symbols.Store
	Fulltext   *fulltext.Index
	Patterns   *patternfallback.Scanner
	Vectors    *vectorstore.Store
	Embeddings *embedding.Engine

	mu    sync.RWMutex
	files map[types.FileID]*fileRecord
}

// New constructs an Engine wired to the given layer instances. Any of
// Patterns, Vectors, Embeddings may be nil: a nil Patterns disables the F
// fallback, nil Vectors/Embeddings disables the semantic layer (it returns
// no results rather than panicking, so a semantic query falls through to
// the full-text layer).
func New(symStore *symbols.Store, ft *fulltext.Index, scanner *patternfallback.Scanner, vecStore *vectorstore.Store, embed *embedding.Engine) *Engine {
	return &Engine{
		Symbols:    symStore,
		Fulltext:   ft,
		Patterns:   scanner,
		Vectors:    vecStore,
		Embeddings: embed,
		files:      make(map[types.FileID]*fileRecord),
	}
}

// IndexFile registers a file's parsed tree and raw bytes so the AST Query
// Layer and Pattern Fallback can search it. Callers are expected to call
// this once per ingested/re-ingested file, after populating Symbols and
// Fulltext for the same file.
func (e *Engine) IndexFile(file types.FileID, path string, lang types.Language, content []byte, tree *parser.Tree) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[file] = &fileRecord{path: path, language: lang, content: content, tree: tree}
}

// RemoveFile drops a file from the engine's bookkeeping (does not touch
// Symbols/Fulltext/Vectors — callers invalidate those separately since they
// are shared, independently-lived layers).
func (e *Engine) RemoveFile(file types.FileID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.files, file)
}

func (e *Engine) fileOf(id types.FileID) (*fileRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fr, ok := e.files[id]
	return fr, ok
}

// Search dispatches q to its primary layer, walking the fallback ladder
// (§4.8 table) when the primary layer returns nothing. Every Result's
// Latency field is the time spent producing that specific result set, not
// cumulative across the ladder.
func (e *Engine) Search(q Query) []Result {
	switch q.Kind {
	case KindSymbolExact:
		return e.ladder(q, e.searchSymbol(symbols.MatchExact), e.searchFulltext, e.searchASTDefinition)
	case KindSymbolFuzzy:
		return e.ladder(q, e.searchSymbol(symbols.MatchFuzzy), e.searchFulltext)
	case KindDefinition:
		return e.ladder(q, e.searchASTDefinition, e.searchSymbol(symbols.MatchExact), e.searchFulltext)
	case KindReferences:
		return e.ladder(q, e.searchASTReferences, e.searchFulltext)
	case KindFullText:
		return e.ladder(q, e.searchFulltext, e.searchPatternFallback)
	case KindSemantic:
		return e.ladder(q, e.searchSemantic, e.searchFulltext)
	case KindGeneral:
		return e.searchHybrid(q)
	default:
		return nil
	}
}

// ladder tries each layer in order, returning the first non-empty result
// set (§4.8 "Fallback ladder"). A layer that errors internally (e.g. no
// scanner configured) simply returns no results and the ladder continues.
func (e *Engine) ladder(q Query, layers ...func(Query) []Result) []Result {
	for _, layer := range layers {
		if results := layer(q); len(results) > 0 {
			return results
		}
	}
	return nil
}

func (e *Engine) searchSymbol(mode symbols.MatchMode) func(Query) []Result {
	return func(q Query) []Result {
		if e.Symbols == nil {
			return nil
		}
		start := time.Now()
		matches := e.Symbols.FindSymbol(q.Text, mode)
		elapsed := time.Since(start)

		out := make([]Result, 0, len(matches))
		for i := range matches {
			sym := matches[i]
			if !passesFileFilters(e, sym.File, q.Filters) {
				continue
			}
			relevance := 1.0
			if mode == symbols.MatchFuzzy {
				// Rank position in the already-similarity-sorted slice stands
				// in for a continuous score: first match is closest.
				relevance = 1.0 - float64(i)*0.05
				if relevance < 0.1 {
					relevance = 0.1
				}
			}
			out = append(out, Result{
				Symbol:    &sym,
				File:      sym.File,
				Span:      sym.Span,
				Relevance: relevance,
				Layer:     LayerSymbols,
				Latency:   elapsed,
			})
		}
		return applyPagination(out, q)
	}
}

func (e *Engine) searchFulltext(q Query) []Result {
	if e.Fulltext == nil {
		return nil
	}
	start := time.Now()
	matches := e.Fulltext.Search(fulltext.Query{
		Must:  []string{q.Text},
		Limit: q.limit() + q.Offset,
	})
	elapsed := time.Since(start)

	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		if !passesFileFilters(e, m.File, q.Filters) {
			continue
		}
		out = append(out, Result{
			File:      m.File,
			Relevance: normalizeScore(m.Score),
			Layer:     LayerFullText,
			Latency:   elapsed,
		})
	}
	return applyPagination(out, q)
}

func (e *Engine) searchASTDefinition(q Query) []Result {
	return e.searchASTByName(q, astquery.FindDefinition)
}

func (e *Engine) searchASTReferences(q Query) []Result {
	return e.searchASTByName(q, astquery.FindReferences)
}

func (e *Engine) searchASTByName(q Query, find func(*parser.Tree, string) []astquery.Result) []Result {
	start := time.Now()
	var out []Result
	for file, fr := range e.filesSnapshot() {
		if fr.tree == nil {
			continue
		}
		if !matchesLanguageFilter(fr.language, q.Filters) || !matchesPathFilter(fr.path, q.Filters) {
			continue
		}
		for _, r := range find(fr.tree, q.Text) {
			span, ok := r.Captures["def"]
			scope := ""
			if len(r.AncestorKinds) > 0 {
				scope = r.AncestorKinds[len(r.AncestorKinds)-1]
			}
			if !ok {
				// Reference results don't carry a "def" capture key; fall
				// back to whatever single capture is present.
				for _, s := range r.Captures {
					span = s
					break
				}
			}
			out = append(out, Result{
				File:            file,
				Span:            span,
				Relevance:       1.0,
				ContainingScope: scope,
				Layer:           LayerASTQuery,
				Latency:         time.Since(start),
			})
		}
	}
	return applyPagination(out, q)
}

func (e *Engine) filesSnapshot() map[types.FileID]*fileRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[types.FileID]*fileRecord, len(e.files))
	for k, v := range e.files {
		out[k] = v
	}
	return out
}

func (e *Engine) searchPatternFallback(q Query) []Result {
	if e.Patterns == nil {
		return nil
	}
	files := make(map[types.FileID][]byte)
	for file, fr := range e.filesSnapshot() {
		if !matchesLanguageFilter(fr.language, q.Filters) || !matchesPathFilter(fr.path, q.Filters) {
			continue
		}
		files[file] = fr.content
	}

	start := time.Now()
	matches, err := e.Patterns.Scan(q.Text, !q.Filters.CaseSensitive, files)
	elapsed := time.Since(start)
	if err != nil {
		return nil
	}

	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		out = append(out, Result{
			File:      m.File,
			Span:      m.Span,
			Relevance: 0.5, // regex fallback has no ranking signal beyond "it matched"
			Layer:     LayerPatternFallback,
			Latency:   elapsed,
		})
	}
	return applyPagination(out, q)
}

func (e *Engine) searchSemantic(q Query) []Result {
	if e.Vectors == nil || e.Embeddings == nil {
		return nil
	}
	start := time.Now()
	vec := e.Embeddings.Embed(semantic.Chunk{Text: q.Text})
	hits, err := e.Vectors.Search(vec, q.limit()+q.Offset, vectorstore.Filters{
		Language: q.Filters.Language,
		PathHas:  q.Filters.PathPrefix,
	})
	elapsed := time.Since(start)
	if err != nil {
		return nil
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		chunk, _ := e.Vectors.Chunk(h.ID)
		out = append(out, Result{
			DocumentID: h.ID,
			File:       chunk.File,
			Span:       chunk.Span,
			Relevance:  float64(h.Score),
			Excerpt:    excerptOf(chunk.Text, 160),
			Layer:      LayerVector,
			Latency:    elapsed,
		})
	}
	return applyPagination(out, q)
}

func passesFileFilters(e *Engine, file types.FileID, f Filters) bool {
	fr, ok := e.fileOf(file)
	if !ok {
		return true // no bookkeeping for this file; don't exclude on an unknown
	}
	return matchesLanguageFilter(fr.language, f) && matchesPathFilter(fr.path, f)
}

func matchesLanguageFilter(lang types.Language, f Filters) bool {
	return f.Language == "" || f.Language == lang
}

func matchesPathFilter(path string, f Filters) bool {
	if f.PathPrefix == "" {
		return true
	}
	return len(path) >= len(f.PathPrefix) && path[:len(f.PathPrefix)] == f.PathPrefix
}

func applyPagination(results []Result, q Query) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	if q.Offset >= len(results) {
		return nil
	}
	end := q.Offset + q.limit()
	if end > len(results) {
		end = len(results)
	}
	return results[q.Offset:end]
}

// normalizeScore squashes an unbounded BM25-style score into (0,1] via
// score/(score+1), a monotonic map that preserves ordering.
func normalizeScore(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (score + 1)
}

func excerptOf(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen]
}
