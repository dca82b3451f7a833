// Package vectorstore implements the Vector Store (component G): an
// approximate nearest-neighbor index over normalized Embeddings, with
// insert-or-replace semantics keyed by DocumentId and max_documents LRU
// eviction (§4.7). Grounded on Aman-CERP/amanmcp's internal/store/hnsw.go
// (coder/hnsw graph wrapping, external-ID <-> internal-graph-key
// indirection, lazy deletion to avoid coder/hnsw's last-node-delete bug,
// cosine normalization and distance-to-score conversion) adapted from a
// string external ID to types.DocumentId, plus last-access timestamp
// tracking in the style of internal/cache/metrics_cache.go (explicit map +
// mutex, CachedAt-style timestamps), to provide the LRU eviction §4.7
// requires and that amanmcp's own store does not implement.
package vectorstore

import (
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/standardbeagle/codeintel/internal/ierrors"
	"github.com/standardbeagle/codeintel/internal/semantic"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Result is one nearest-neighbor hit (§3 "SearchResult" carries a
// DocumentId and a relevance in [0,1]; Score here is that relevance).
type Result struct {
	ID       types.DocumentId
	Distance float32
	Score    float32
}

// Filters narrows a search to documents matching every non-empty field.
type Filters struct {
	Language types.Language
	PathHas  string
}

type entry struct {
	graphKey   uint64
	chunk      semantic.Chunk
	lastAccess int64 // monotonically increasing logical clock, not wall time — §6 forbids Date.Now()-style nondeterminism in tests
}

// Store is the Vector Store.
type Store struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]

	maxDocuments int
	dimensions   int

	byID       map[types.DocumentId]*entry
	graphKeyID map[uint64]types.DocumentId
	nextDocID  types.DocumentId
	nextKey    uint64
	clock      int64
}

// New constructs a Store bounded to maxDocuments entries (§4.7
// "max_documents"), indexing dimensions-length cosine-normalized vectors.
func New(maxDocuments, dimensions int) *Store {
	if dimensions <= 0 {
		dimensions = semantic.EmbeddingDimensions
	}
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return &Store{
		graph:        g,
		maxDocuments: maxDocuments,
		dimensions:   dimensions,
		byID:         make(map[types.DocumentId]*entry),
		graphKeyID:   make(map[uint64]types.DocumentId),
		nextDocID:    1,
	}
}

// Upsert inserts a new Document (id == 0) or replaces the vector and chunk
// stored under an existing DocumentId (§4.7 "writes insert-or-replace by
// DocumentId"), returning the DocumentId written to. Capacity eviction
// (oldest last-access first) runs before the insert if the store is full
// and id is new.
func (s *Store) Upsert(id types.DocumentId, chunk semantic.Chunk, vec semantic.Embedding) (types.DocumentId, error) {
	if len(vec) != s.dimensions {
		return 0, ierrors.New(ierrors.KindInternal, "vectorstore.Upsert",
			fmt.Errorf("embedding has %d dimensions, store expects %d", len(vec), s.dimensions))
	}

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 {
		if s.maxDocuments > 0 && len(s.byID) >= s.maxDocuments {
			s.evictLRULocked()
		}
		id = s.nextDocID
		s.nextDocID++
	} else if old, ok := s.byID[id]; ok {
		// Lazy-delete the old graph node: orphan its key rather than calling
		// graph.Delete, which corrupts the structure when it removes the
		// last node (amanmcp's documented workaround).
		delete(s.graphKeyID, old.graphKey)
	}

	key := s.nextKey
	s.nextKey++
	node := hnsw.MakeNode(key, normalized)
	s.graph.Add(node)

	s.clock++
	s.byID[id] = &entry{graphKey: key, chunk: chunk, lastAccess: s.clock}
	s.graphKeyID[key] = id

	return id, nil
}

// evictLRULocked removes the least-recently-accessed document to make room
// for a new one. Caller must hold s.mu.
func (s *Store) evictLRULocked() {
	var oldestID types.DocumentId
	var oldestAt int64 = math.MaxInt64
	for id, e := range s.byID {
		if e.lastAccess < oldestAt {
			oldestAt = e.lastAccess
			oldestID = id
		}
	}
	if oldestID == 0 {
		return
	}
	e := s.byID[oldestID]
	delete(s.graphKeyID, e.graphKey)
	delete(s.byID, oldestID)
}

// Search returns the top-k documents by cosine similarity to query,
// optionally narrowed by filters (§4.7 "search(query_vector, k,
// filters)"). Recall is approximate: coder/hnsw is an approximate
// nearest-neighbor structure, per explicit allowance.
func (s *Store) Search(query semantic.Embedding, k int, filters Filters) ([]Result, error) {
	if len(query) != s.dimensions {
		return nil, ierrors.New(ierrors.KindInternal, "vectorstore.Search",
			fmt.Errorf("query has %d dimensions, store expects %d", len(query), s.dimensions))
	}
	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.graph.Len() == 0 {
		return nil, nil
	}

	// Over-fetch to compensate for orphaned (lazily-deleted) nodes and for
	// filtered-out candidates, mirroring how lazy-deletion
	// scheme expects callers to tolerate dead entries in raw graph results.
	fetch := k * 4
	if fetch < k+8 {
		fetch = k + 8
	}
	nodes := s.graph.Search(normalized, fetch)

	out := make([]Result, 0, k)
	for _, node := range nodes {
		id, ok := s.graphKeyID[node.Key]
		if !ok {
			continue // orphaned by a prior Upsert replacement
		}
		e := s.byID[id]
		if !matchesFilters(e.chunk, filters) {
			continue
		}
		s.clock++
		e.lastAccess = s.clock

		distance := s.graph.Distance(normalized, node.Value)
		out = append(out, Result{ID: id, Distance: distance, Score: cosineScore(distance)})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func matchesFilters(c semantic.Chunk, f Filters) bool {
	if f.Language != "" && c.Language != f.Language {
		return false
	}
	if f.PathHas != "" && !contains(c.CanonicalPath, f.PathHas) {
		return false
	}
	return true
}

func contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// Chunk returns the Chunk stored under id, if present.
func (s *Store) Chunk(id types.DocumentId) (semantic.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return semantic.Chunk{}, false
	}
	return e.chunk, true
}

// Remove deletes a document from the store (lazy: orphans its graph key).
func (s *Store) Remove(id types.DocumentId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.graphKeyID, e.graphKey)
	delete(s.byID, id)
}

// Count returns the number of live (non-evicted, non-replaced) documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, f := range v {
		sumSquares += float64(f) * float64(f)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// cosineScore converts a cosine distance (0 identical .. 2 opposite) into a
// [0,1] relevance score, matching amanmcp's distanceToScore for the "cos"
// metric.
func cosineScore(distance float32) float32 {
	return 1.0 - distance/2.0
}
