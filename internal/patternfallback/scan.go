// Package patternfallback implements the Pattern Fallback (component F): a
// best-effort regexp.Regexp scan over the raw file set for queries none of
// the structured layers (symbol, full-text, AST query) can answer —
// arbitrary regular expressions over content the other layers never
// tokenized that way. Grounded on internal/regex_analyzer/engine.go
// (HybridRegexEngine): the (?m)-flag compile convention, a bounded
// compiled-pattern cache, and per-candidate FindAllIndex scanning — minus
// the trigram pre-filter, since this layer's entire reason to exist is
// the query the index couldn't serve.
package patternfallback

import (
	"fmt"
	"regexp"

	"github.com/standardbeagle/codeintel/internal/cache"
	"github.com/standardbeagle/codeintel/internal/ierrors"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Match is one regexp hit. Fallback is always true: every result from this
// layer is flagged so the Retrieval Engine's ranker can demote it relative
// to a structured layer's hit on the same query (§4.6, §4.8).
type Match struct {
	File     types.FileID
	Span     types.ByteSpan
	Line     int
	Fallback bool
}

// Scanner compiles and caches regexp patterns so a repeated fallback query
// (common for an agent iterating on a search) does not recompile.
type Scanner struct {
	compiled *cache.Cache[string, *regexp.Regexp]
}

// New constructs a Scanner with a bounded compiled-pattern cache.
func New(cacheSize int) (*Scanner, error) {
	c, err := cache.New[string, *regexp.Regexp](cacheSize)
	if err != nil {
		return nil, ierrors.New(ierrors.KindInternal, "patternfallback.New", err)
	}
	return &Scanner{compiled: c}, nil
}

func cacheKey(pattern string, caseInsensitive bool) string {
	if caseInsensitive {
		return "i:" + pattern
	}
	return "s:" + pattern
}

// compile mirrors engine.go's parseSimplePattern/compileComplexPattern:
// always multiline, so "^"/"$" match line boundaries rather than only the
// start/end of the whole file.
func (s *Scanner) compile(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	key := cacheKey(pattern, caseInsensitive)
	if re, ok := s.compiled.Get(key); ok {
		return re, nil
	}
	flags := "(?m)"
	if caseInsensitive {
		flags = "(?mi)"
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		return nil, ierrors.New(ierrors.KindParse, fmt.Sprintf("patternfallback.compile(%q)", pattern), err)
	}
	s.compiled.Add(key, re)
	return re, nil
}

// Scan runs pattern against every file in files (FileID -> content),
// returning every match with its line number. A compile error is returned
// immediately rather than silently skipping the query — callers treat a
// bad pattern as a request error, not an empty result (§4.6 "Failure: a
// pattern that fails to compile is reported, not silently dropped").
func (s *Scanner) Scan(pattern string, caseInsensitive bool, files map[types.FileID][]byte) ([]Match, error) {
	re, err := s.compile(pattern, caseInsensitive)
	if err != nil {
		return nil, err
	}

	var out []Match
	for file, content := range files {
		for _, idx := range re.FindAllIndex(content, -1) {
			out = append(out, Match{
				File:     file,
				Span:     types.ByteSpan{Start: idx[0], End: idx[1]},
				Line:     lineOf(content, idx[0]),
				Fallback: true,
			})
		}
	}
	return out, nil
}

func lineOf(content []byte, byteOffset int) int {
	line := 1
	for i := 0; i < byteOffset && i < len(content); i++ {
		if content[i] == '\n' {
			line++
		}
	}
	return line
}
