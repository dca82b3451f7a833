package symbols

import (
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/codeintel/internal/types"
)

// Store is the Symbol Layer's concurrent map: Identifier -> []Symbol.
// Adapted from internal/core/symbol_store.go's SymbolStore
// (parallel-array-plus-index design) into a plain map of slices, since
// this layer's key is the symbol name itself rather than a synthetic ID —
// the access pattern here is "give me every symbol named X", not "give me
// symbol #N".
type Store struct {
	mu      sync.RWMutex
	byName  map[string][]Symbol
	byFile  map[types.FileID][]string // names touched by a file, for fast rebuild
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		byName: make(map[string][]Symbol),
		byFile: make(map[types.FileID][]string),
	}
}

// ReplaceFile atomically removes every Symbol previously recorded for file
// and inserts syms in its place (§4.3 "Rebuild on file change: old symbols
// for that file are removed in one critical section, new symbols
// inserted."). Safe to call with an empty syms to simply clear a file.
func (s *Store) ReplaceFile(file types.FileID, syms []Symbol) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.byFile[file] {
		s.removeFileFromNameLocked(name, file)
	}

	names := make([]string, 0, len(syms))
	for _, sym := range syms {
		key := foldKey(sym.Name)
		s.byName[key] = append(s.byName[key], sym)
		names = append(names, key)
	}
	if len(names) == 0 {
		delete(s.byFile, file)
	} else {
		s.byFile[file] = names
	}
}

func (s *Store) removeFileFromNameLocked(name string, file types.FileID) {
	existing := s.byName[name]
	kept := existing[:0]
	for _, sym := range existing {
		if sym.File != file {
			kept = append(kept, sym)
		}
	}
	if len(kept) == 0 {
		delete(s.byName, name)
		return
	}
	s.byName[name] = kept
}

// Size reports the total number of indexed symbols.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, syms := range s.byName {
		n += len(syms)
	}
	return n
}

// FindSymbol implements find_symbol(name, mode) (§4.3). Exact and prefix
// lookups are case-folded; fuzzy lookup bounds the allowed edit distance
// proportionally to len(name) and ranks surviving candidates by
// Jaro-Winkler similarity, matching internal/semantic/fuzzy_matcher.go's
// default algorithm (prefix-weighted, so a missing middle character still
// ranks the intended target first — §8 scenario 3).
func (s *Store) FindSymbol(name string, mode MatchMode) []Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch mode {
	case MatchExact:
		return append([]Symbol(nil), s.byName[foldKey(name)]...)
	case MatchPrefix:
		return s.findPrefixLocked(name)
	case MatchFuzzy:
		return s.findFuzzyLocked(name)
	default:
		return nil
	}
}

func (s *Store) findPrefixLocked(prefix string) []Symbol {
	key := foldKey(prefix)
	var out []Symbol
	names := make([]string, 0, len(s.byName))
	for n := range s.byName {
		if strings.HasPrefix(n, key) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		out = append(out, s.byName[n]...)
	}
	return out
}

type fuzzyCandidate struct {
	name       string
	similarity float64
}

// findFuzzyLocked bounds candidates to those within editBound(len(query))
// plain Levenshtein edits of the query (the bound grows with the query's
// length — a one-character typo in a 20-character identifier should not be
// rejected the way it would be in a 4-character one) and then
// orders survivors by Jaro-Winkler similarity, highest first.
func (s *Store) findFuzzyLocked(name string) []Symbol {
	query := foldKey(name)
	if query == "" {
		return nil
	}
	bound := editBound(len(query))

	var candidates []fuzzyCandidate
	for n := range s.byName {
		if n == query {
			candidates = append(candidates, fuzzyCandidate{name: n, similarity: 1.0})
			continue
		}
		if !withinEditBound(query, n, bound) {
			continue
		}
		sim, err := edlib.StringsSimilarity(query, n, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		candidates = append(candidates, fuzzyCandidate{name: n, similarity: float64(sim)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].name < candidates[j].name
	})

	var out []Symbol
	for _, c := range candidates {
		out = append(out, s.byName[c.name]...)
	}
	return out
}

// editBound returns the maximum Levenshtein edit distance find_symbol's
// fuzzy mode tolerates for a query of length n (§4.3 "an edit-distance
// bound proportional to name length"). One edit per three characters,
// minimum of one, mirrors common fuzzy-finder defaults and keeps short
// identifiers from matching almost anything.
func editBound(n int) int {
	b := n / 3
	if b < 1 {
		b = 1
	}
	return b
}

// withinEditBound computes the plain Levenshtein edit distance between a
// and b directly (no normalization) so it can be compared against an
// integer bound; this avoids round-tripping through go-edlib's
// [0,1]-normalized distance, which loses precision for short strings.
func withinEditBound(a, b string, bound int) bool {
	return levenshtein(a, b) <= bound
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func foldKey(name string) string {
	return strings.ToLower(name)
}
