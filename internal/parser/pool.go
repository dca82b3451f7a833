// Package parser implements the Parser Pool (§4.1): one tree-sitter parser
// per language, lazily initialized, handing out SyntaxTrees memoized by
// (Language, ContentHash) in a bounded LRU. Grounded on
// internal/parser/parser.go and parser_language_setup.go, which wire the
// same tree-sitter grammar packages this pool uses; generalized from a
// single shared-cache design to one LRU per language so a hot language
// doesn't evict a cold one's trees.
package parser

import (
	"sync"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codeintel/internal/cache"
	"github.com/standardbeagle/codeintel/internal/telemetry"
	"github.com/standardbeagle/codeintel/internal/types"
)

// ParseHardCapMS is the per-parse hard cap (§5 "Timeouts"): past this, Parse
// stops waiting and returns a Tree marked Degraded with ErrorNodes 1 and no
// syntax tree (Raw is nil; no partial tree is kept), rather than blocking
// ingestion on a pathological input.
const ParseHardCapMS = 100 * time.Millisecond

// Tree wraps a tree-sitter Tree with the context the rest of the engine
// needs without re-deriving it: the language it was parsed with, whether
// parsing hit errors, and whether the result is degraded (no grammar, a
// failed grammar setup, or the hard cap reached).
type Tree struct {
	Lang      types.Language
	Hash      types.ContentHash
	Source    []byte
	Raw       *tree_sitter.Tree // nil when the language has no grammar
	ErrorNodes int
	Degraded  bool
}

// RootNode returns the tree-sitter root node, or nil when Raw is nil (no
// grammar for this language — callers fall back to the text-based path).
func (t *Tree) RootNode() *tree_sitter.Node {
	if t.Raw == nil {
		return nil
	}
	return t.Raw.RootNode()
}

type langSlot struct {
	mu       sync.Mutex // serializes access to this language's parser (§4.1: "not safe to share across threads")
	once     sync.Once
	parser   *tree_sitter.Parser
	language *tree_sitter.Language
	setup    func() (*tree_sitter.Language, error)
	ready    bool
}

// Pool is the Parser Pool. One Pool is shared across an ingestion run.
type Pool struct {
	mu    sync.Mutex
	slots map[types.Language]*langSlot
	trees map[types.Language]*cache.Cache[types.ContentHash, *Tree]

	cacheSizeFor func(types.Language) int
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithCacheSize overrides the per-language tree-cache capacity; f is called
// once per language the first time that language is used.
func WithCacheSize(f func(types.Language) int) Option {
	return func(p *Pool) { p.cacheSizeFor = f }
}

// New constructs a Pool with lazily-initialized parsers for every
// registered language (grammarSetups, in setup.go).
func New(opts ...Option) *Pool {
	p := &Pool{
		slots:        map[types.Language]*langSlot{},
		trees:        map[types.Language]*cache.Cache[types.ContentHash, *Tree]{},
		cacheSizeFor: func(types.Language) int { return 128 },
	}
	for lang, setup := range grammarSetups {
		p.slots[lang] = &langSlot{setup: setup}
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse returns a SyntaxTree for bytes in language lang, consulting the
// (language, contentHash) LRU first. Parsing never returns an error: a
// grammar failure or missing grammar degrades to a Tree with Raw == nil
// and ErrorNodes set, so callers (the Compactor) can fall back to the
// text-based projection (§4.1 "the pool never raises").
func (p *Pool) Parse(lang types.Language, content []byte) *Tree {
	hash := types.ContentHash(hashContent(content))

	treeCache := p.treeCacheFor(lang)
	if cached, ok := treeCache.Get(hash); ok {
		return cached
	}

	tree := p.parseUncached(lang, hash, content)
	treeCache.Add(hash, tree)
	return tree
}

func (p *Pool) treeCacheFor(lang types.Language) *cache.Cache[types.ContentHash, *Tree] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.trees[lang]; ok {
		return c
	}
	c, err := cache.New[types.ContentHash, *Tree](p.cacheSizeFor(lang))
	if err != nil {
		// size<=0 from a misconfigured cacheSizeFor; fall back to a small
		// sane default rather than letting a parse request panic.
		c, _ = cache.New[types.ContentHash, *Tree](32)
	}
	p.trees[lang] = c
	return c
}

func (p *Pool) parseUncached(lang types.Language, hash types.ContentHash, content []byte) *Tree {
	slot := p.slotFor(lang)
	if slot == nil {
		return &Tree{Lang: lang, Hash: hash, Source: content, ErrorNodes: 1, Degraded: true}
	}

	slot.once.Do(func() {
		language, err := slot.setup()
		if err != nil {
			telemetry.L().Warn("grammar init failed", "language", lang, "error", err)
			return
		}
		ts := tree_sitter.NewParser()
		if err := ts.SetLanguage(language); err != nil {
			telemetry.L().Warn("set language failed", "language", lang, "error", err)
			return
		}
		slot.parser = ts
		slot.language = language
		slot.ready = true
	})

	if !slot.ready {
		return &Tree{Lang: lang, Hash: hash, Source: content, ErrorNodes: 1, Degraded: true}
	}

	// slot.mu guards slot.parser itself, not just this call: it must stay
	// held for as long as the tree-sitter Parse below is actually running,
	// even past a hard-cap timeout, or a later call for this language could
	// invoke slot.parser.Parse concurrently with this one (§4.1 "not safe
	// to share across threads"). The goroutine below is the sole unlocker;
	// the select only decides what this call returns to its caller.
	slot.mu.Lock()

	result := make(chan *tree_sitter.Tree, 1)
	go func() {
		raw := slot.parser.Parse(content, nil)
		slot.mu.Unlock()
		result <- raw
	}()

	select {
	case raw := <-result:
		errNodes := countErrorNodes(raw)
		return &Tree{Lang: lang, Hash: hash, Source: content, Raw: raw, ErrorNodes: errNodes}
	case <-time.After(ParseHardCapMS):
		return &Tree{Lang: lang, Hash: hash, Source: content, ErrorNodes: 1, Degraded: true}
	}
}

func (p *Pool) slotFor(lang types.Language) *langSlot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[lang]
}

func countErrorNodes(tree *tree_sitter.Tree) int {
	if tree == nil {
		return 1
	}
	root := tree.RootNode()
	if root == nil {
		return 1
	}
	if !root.HasError() {
		return 0
	}
	var count int
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if n == nil {
			return
		}
		if n.IsError() {
			count++
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return count
}

// Stats returns per-language tree-cache statistics, keyed by language.
func (p *Pool) Stats() map[types.Language]cache.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[types.Language]cache.Stats, len(p.trees))
	for lang, c := range p.trees {
		out[lang] = c.Stats()
	}
	return out
}
