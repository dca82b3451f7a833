// Package engine is the composition root tying the Parser Pool, AST
// Compactor, Symbol Layer, Full-Text Layer, Pattern Fallback, Vector
// Store, and Embedding Engine into one ingestion pipeline feeding a
// retrieval.Engine. Grounded on internal/indexing.MasterIndex,
// which plays the same composition-root role over its own subsystems (a
// trigram index, symbol store, and search engine) behind one ingestion
// entry point.
package engine

import (
	"fmt"

	"github.com/standardbeagle/codeintel/internal/compactor"
	"github.com/standardbeagle/codeintel/internal/config"
	"github.com/standardbeagle/codeintel/internal/corefs"
	"github.com/standardbeagle/codeintel/internal/fulltext"
	"github.com/standardbeagle/codeintel/internal/parser"
	"github.com/standardbeagle/codeintel/internal/patternfallback"
	"github.com/standardbeagle/codeintel/internal/retrieval"
	"github.com/standardbeagle/codeintel/internal/semantic"
	"github.com/standardbeagle/codeintel/internal/semantic/embedding"
	"github.com/standardbeagle/codeintel/internal/semantic/vectorstore"
	"github.com/standardbeagle/codeintel/internal/symbols"
	"github.com/standardbeagle/codeintel/internal/telemetry"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Indexer owns every per-file index and the walker that feeds it. One
// Indexer serves one project root for the lifetime of a process.
type Indexer struct {
	cfg *config.Config

	pool      *parser.Pool
	symStore  *symbols.Store
	fulltext  *fulltext.Index
	patterns  *patternfallback.Scanner
	vectors   *vectorstore.Store
	embedder  *embedding.Engine
	retrieval *retrieval.Engine

	walker     *corefs.Walker
	pathToFile map[string]types.FileID
	fileDocs   map[types.FileID][]types.DocumentId
}

// New builds an Indexer from cfg, sizing the Parser Pool's per-language
// caches and the Vector Store's capacity from the same Compaction/Index
// config blocks the MasterIndex constructor reads.
func New(cfg *config.Config) (*Indexer, error) {
	pool := parser.New(parser.WithCacheSize(func(lang types.Language) int {
		return cfg.Compaction.LightCacheSize
	}))

	scanner, err := patternfallback.New(256)
	if err != nil {
		return nil, fmt.Errorf("engine.New: pattern scanner: %w", err)
	}
	embedder, err := embedding.New(4096)
	if err != nil {
		return nil, fmt.Errorf("engine.New: embedding engine: %w", err)
	}

	symStore := symbols.New()
	ftIndex := fulltext.New()
	maxDocs := cfg.Index.MaxFileCount * 8
	if maxDocs <= 0 {
		maxDocs = 100_000
	}
	vecStore := vectorstore.New(maxDocs, semantic.EmbeddingDimensions)

	return &Indexer{
		cfg:        cfg,
		pool:       pool,
		symStore:   symStore,
		fulltext:   ftIndex,
		patterns:   scanner,
		vectors:    vecStore,
		embedder:   embedder,
		retrieval:  retrieval.New(symStore, ftIndex, scanner, vecStore, embedder),
		pathToFile: make(map[string]types.FileID),
		fileDocs:   make(map[types.FileID][]types.DocumentId),
	}, nil
}

// Retrieval exposes the wired-up Retrieval Engine for search callers (the
// MCP server, the CLI's search command).
func (ix *Indexer) Retrieval() *retrieval.Engine { return ix.retrieval }

// IndexRoot walks root with ix's corefs.Walker and ingests every discovered
// file, returning the count ingested. The Walker is built once and reused
// across calls so a path keeps the same FileID on every re-ingestion (§3
// "Lifecycle"); only a change of root rebuilds it.
func (ix *Indexer) IndexRoot(root string) (int, error) {
	if ix.walker == nil || ix.walker.Root() != root {
		cfg := *ix.cfg
		cfg.Project.Root = root
		ix.walker = corefs.NewWalker(&cfg)
	}

	count := 0
	_, err := ix.walker.Walk(func(sf corefs.SourceFile) error {
		ix.IndexFile(sf)
		count++
		return nil
	})
	return count, err
}

// IndexFile (re)ingests one SourceFile across every layer: parsing it,
// extracting its declarations, and replacing that file's prior entries in
// the Symbol Layer, Full-Text Layer, and Vector Store before registering
// its raw bytes and tree with the Retrieval Engine for AST-query and
// pattern-fallback lookups (§3 "Lifecycle"). The layers are updated one
// after another with no lock spanning them, so a concurrent reader can see
// some layers already updated and others not yet.
func (ix *Indexer) IndexFile(sf corefs.SourceFile) {
	ix.pathToFile[sf.Path] = sf.ID

	tree := ix.pool.Parse(sf.Language, sf.Bytes)
	result := compactor.Compact(tree, compactor.Options{
		Level:         types.LevelMedium,
		PreserveDocs:  true,
		BodyLineLimit: ix.cfg.Compaction.LightBodyLines,
	})

	ix.indexSymbols(sf, result.Elements)
	ix.indexFulltext(sf, result.Elements)
	ix.indexVectors(sf, result.Elements)
	ix.retrieval.IndexFile(sf.ID, sf.Path, sf.Language, sf.Bytes, tree)

	telemetry.L().Debug("indexed file", "path", sf.Path, "language", sf.Language, "elements", len(result.Elements))
}

// RemoveFile retracts file from every layer (§3 "Lifecycle"), one layer
// after another.
func (ix *Indexer) RemoveFile(path string) {
	file, ok := ix.pathToFile[path]
	if !ok {
		return
	}
	delete(ix.pathToFile, path)

	ix.symStore.ReplaceFile(file, nil)
	ix.fulltext.RemoveDocument(file)
	for _, id := range ix.fileDocs[file] {
		ix.vectors.Remove(id)
	}
	delete(ix.fileDocs, file)
	ix.retrieval.RemoveFile(file)
}

func (ix *Indexer) indexSymbols(sf corefs.SourceFile, elements []*compactor.Element) {
	var syms []symbols.Symbol
	var walk func(els []*compactor.Element, scope string)
	walk = func(els []*compactor.Element, scope string) {
		for _, el := range els {
			syms = append(syms, symbols.Symbol{
				Name:       el.Name,
				Kind:       el.Kind,
				File:       sf.ID,
				Span:       el.Span,
				LineCol:    el.LineCol,
				Visibility: el.Visibility,
				Scope:      scope,
			})
			walk(el.Children, el.Name)
		}
	}
	walk(elements, "")
	ix.symStore.ReplaceFile(sf.ID, syms)
}

func (ix *Indexer) indexFulltext(sf corefs.SourceFile, elements []*compactor.Element) {
	lineText := splitLines(sf.Bytes)
	lines := make([]fulltext.LineRecord, len(lineText))
	for i, t := range lineText {
		lines[i] = fulltext.LineRecord{Text: t}
	}

	var symbolNames []string
	var annotate func(els []*compactor.Element)
	annotate = func(els []*compactor.Element) {
		for _, el := range els {
			symbolNames = append(symbolNames, el.Name)
			startLine := el.LineCol.StartLine - 1
			endLine := el.LineCol.EndLine - 1
			for l := startLine; l >= 0 && l <= endLine && l < len(lines); l++ {
				if el.Kind == types.KindType || el.Kind == types.KindInterface || el.Kind == types.KindEnum {
					lines[l].ContainingType = el.Name
				} else {
					lines[l].ContainingFunction = el.Name
				}
			}
			annotate(el.Children)
		}
	}
	annotate(elements)

	ix.fulltext.IndexDocument(&fulltext.Document{
		File:     sf.ID,
		Path:     sf.Path,
		Language: sf.Language,
		Symbols:  symbolNames,
		Lines:    lines,
	})
}

// indexVectors (re)writes sf's Documents in the Vector Store, reusing the
// file's prior DocumentIds by position so re-ingestion replaces rather than
// accumulates entries, and retracts any prior ids the new element set no
// longer has a chunk for (§3 "Lifecycle": re-ingestion is atomic per file —
// no pre-ingestion Document for it remains queryable afterward).
func (ix *Indexer) indexVectors(sf corefs.SourceFile, elements []*compactor.Element) {
	prior := ix.fileDocs[sf.ID]
	next := make([]types.DocumentId, 0, len(prior))

	var walk func(els []*compactor.Element)
	walk = func(els []*compactor.Element) {
		for _, el := range els {
			chunk := semantic.Chunk{
				File:          sf.ID,
				Span:          el.Span,
				Language:      sf.Language,
				CanonicalPath: sf.Path + "." + el.Name,
				Text:          el.Signature + "\n" + el.Doc + "\n" + el.Body,
			}
			vec := ix.embedder.Embed(chunk)

			var reuse types.DocumentId
			if len(next) < len(prior) {
				reuse = prior[len(next)]
			}
			id, err := ix.vectors.Upsert(reuse, chunk, vec)
			if err != nil {
				telemetry.L().Warn("vector upsert failed", "path", sf.Path, "element", el.Name, "error", err)
			} else {
				next = append(next, id)
			}
			walk(el.Children)
		}
	}
	walk(elements)

	for _, stale := range prior[len(next):] {
		ix.vectors.Remove(stale)
	}
	ix.fileDocs[sf.ID] = next
}

func splitLines(b []byte) []string {
	var lines []string
	start := 0
	for i, c := range b {
		if c == '\n' {
			lines = append(lines, string(b[start:i]))
			start = i + 1
		}
	}
	lines = append(lines, string(b[start:]))
	return lines
}
