package fulltext

import (
	"math"
	"sort"
	"strings"

	"github.com/standardbeagle/codeintel/internal/types"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Query is a boolean/phrase/wildcard full-text query (§4.4). Must terms are
// required (AND), Should terms contribute to ranking but are not required
// (OR), MustNot excludes any document containing the term. Phrase, when
// non-empty, requires its terms to occur contiguously in the content field
// (positions must be adjacent). Wildcard terms ("parse*", "*json") expand
// against the field's term dictionary before scoring. Fields restricts
// which fields participate; nil/empty means every field.
type Query struct {
	Must     []string
	Should   []string
	MustNot  []string
	Phrase   string
	Fields   []Field
	Limit    int
}

// Match is one scored hit.
type Match struct {
	File  types.FileID
	Score float64
	Lines []int // line numbers the match touched, when the content/scope fields recorded them
}

// Search evaluates q against idx and returns matches sorted by descending
// BM25 score (deterministic tie-break by FileID, ascending).
func (idx *Index) Search(q Query) []Match {
	fields := q.Fields
	if len(fields) == 0 {
		fields = allFields
	}

	scores := map[types.FileID]float64{}
	lines := map[types.FileID]map[int]bool{}
	record := func(file types.FileID, delta float64, ls []int) {
		scores[file] += delta
		if len(ls) > 0 {
			if lines[file] == nil {
				lines[file] = map[int]bool{}
			}
			for _, l := range ls {
				lines[file][l] = true
			}
		}
	}

	mustDocs := map[types.FileID]int{} // count of must-terms satisfied, per doc
	for _, term := range q.Must {
		hits := idx.searchTerm(term, fields, record)
		for f := range hits {
			mustDocs[f]++
		}
	}
	for _, term := range q.Should {
		idx.searchTerm(term, fields, record)
	}
	if q.Phrase != "" {
		terms := tokenizeQueryString(q.Phrase)
		for f, ls := range idx.searchPhrase(terms) {
			record(f, idx.fields[FieldContent].idf(strings.Join(terms, " "))*FieldContent.Boost(), ls)
		}
	}

	excluded := map[types.FileID]bool{}
	for _, term := range q.MustNot {
		for f := range idx.termDocs(term, fields) {
			excluded[f] = true
		}
	}

	var out []Match
	for file, score := range scores {
		if excluded[file] {
			continue
		}
		if len(q.Must) > 0 && mustDocs[file] < len(q.Must) {
			continue
		}
		m := Match{File: file, Score: score}
		if ls, ok := lines[file]; ok {
			for l := range ls {
				m.Lines = append(m.Lines, l)
			}
			sort.Ints(m.Lines)
		}
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].File < out[j].File
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// searchTerm expands wildcards, scores every matching term's postings with
// BM25 times the field boost, and reports which documents matched (for
// must-term satisfaction counting).
func (idx *Index) searchTerm(term string, fields []Field, record func(types.FileID, float64, []int)) map[types.FileID]bool {
	hit := map[types.FileID]bool{}
	isWildcard := strings.Contains(term, "*")
	for _, f := range fields {
		fi := idx.fields[f]
		terms := []string{normalizeQueryTerm(term)}
		if isWildcard {
			terms = fi.expandWildcard(term)
		}
		for _, t := range terms {
			postings, avgdl := fi.snapshot(t)
			for file, p := range postings {
				score := bm25(p.Freq, len(postings), idx.DocCount(), fi.docLenFor(file), avgdl) * f.Boost()
				record(file, score, p.Lines)
				hit[file] = true
			}
		}
	}
	return hit
}

func (idx *Index) termDocs(term string, fields []Field) map[types.FileID]bool {
	out := map[types.FileID]bool{}
	norm := normalizeQueryTerm(term)
	for _, f := range fields {
		fi := idx.fields[f]
		fi.mu.RLock()
		for file := range fi.postings[norm] {
			out[file] = true
		}
		fi.mu.RUnlock()
	}
	return out
}

// searchPhrase requires terms to appear as a contiguous run of positions in
// the content field.
func (idx *Index) searchPhrase(terms []string) map[types.FileID][]int {
	out := map[types.FileID][]int{}
	if len(terms) == 0 {
		return out
	}
	fi := idx.fields[FieldContent]
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	first := fi.postings[terms[0]]
	for file, p0 := range first {
		for _, start := range p0.Positions {
			matched := true
			for i := 1; i < len(terms); i++ {
				docs := fi.postings[terms[i]]
				pn, ok := docs[file]
				if !ok || !containsInt(pn.Positions, start+i) {
					matched = false
					break
				}
			}
			if matched {
				out[file] = append(out[file], lineForPosition(p0, start))
			}
		}
	}
	return out
}

func lineForPosition(p *Posting, pos int) int {
	for i, ppos := range p.Positions {
		if ppos == pos && i < len(p.Lines) {
			return p.Lines[i]
		}
	}
	return 0
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// snapshot returns a shallow copy of term's postings and the field's
// current average document length, taken under the field's read lock.
func (fi *fieldIndex) snapshot(term string) (map[types.FileID]*Posting, float64) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	src := fi.postings[term]
	out := make(map[types.FileID]*Posting, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, fi.avgDocLen()
}

func (fi *fieldIndex) docLenFor(file types.FileID) int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.docLen[file]
}

func (fi *fieldIndex) idf(term string) float64 {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	n := len(fi.docLen)
	df := len(fi.postings[term])
	if n == 0 || df == 0 {
		return 0
	}
	return math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
}

// expandWildcard matches "prefix*", "*suffix", and "*contains*" patterns
// against this field's term dictionary.
func (fi *fieldIndex) expandWildcard(pattern string) []string {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	prefix := strings.HasPrefix(pattern, "*")
	suffix := strings.HasSuffix(pattern, "*")
	core := strings.ToLower(strings.Trim(pattern, "*"))

	var out []string
	for term := range fi.postings {
		switch {
		case prefix && suffix:
			if strings.Contains(term, core) {
				out = append(out, term)
			}
		case suffix:
			if strings.HasPrefix(term, core) {
				out = append(out, term)
			}
		case prefix:
			if strings.HasSuffix(term, core) {
				out = append(out, term)
			}
		default:
			if term == core {
				out = append(out, term)
			}
		}
	}
	return out
}

func normalizeQueryTerm(term string) string {
	toks := Tokenize(term)
	if len(toks) == 0 {
		return strings.ToLower(term)
	}
	return toks[0].Term
}

func tokenizeQueryString(s string) []string {
	toks := Tokenize(s)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Term
	}
	return out
}

// bm25 computes the classic Okapi BM25 term-document score for a single
// query term (internal/search/engine.go computes a comparable
// TF/IDF-with-length-normalization score for trigram hits; this generalizes
// it to the standard BM25 form across arbitrary term fields).
func bm25(freq, docFreq, totalDocs, docLen int, avgdl float64) float64 {
	if totalDocs == 0 || docFreq == 0 {
		return 0
	}
	idf := math.Log(1 + (float64(totalDocs)-float64(docFreq)+0.5)/(float64(docFreq)+0.5))
	if avgdl == 0 {
		avgdl = 1
	}
	tf := float64(freq)
	norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(docLen)/avgdl))
	return idf * norm
}
