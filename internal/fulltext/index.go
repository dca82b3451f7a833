package fulltext

import (
	"strings"
	"sync"

	"github.com/standardbeagle/codeintel/internal/types"
)

// Posting is one term's occurrence record within a field, for one document.
// Positions backs phrase queries; Lines backs line-scoped reporting
// (§4.4's line_number field is carried as metadata here rather than as its
// own invertible term field, since "line number" has no vocabulary to
// search against — only content/symbol terms do).
type Posting struct {
	File      types.FileID
	Freq      int
	Positions []int
	Lines     []int
}

// fieldIndex is one field's inverted index: term -> per-document postings,
// plus the length bookkeeping BM25 needs (document length and the
// corpus-wide average). Each field has its own lock, so a writer indexing
// the symbols field for one file never blocks a reader searching content
// (§4.4 "readers never block writers of a different field set").
type fieldIndex struct {
	mu       sync.RWMutex
	postings map[string]map[types.FileID]*Posting
	docLen   map[types.FileID]int
	totalLen int64
}

func newFieldIndex() *fieldIndex {
	return &fieldIndex{
		postings: make(map[string]map[types.FileID]*Posting),
		docLen:   make(map[types.FileID]int),
	}
}

func (fi *fieldIndex) avgDocLen() float64 {
	if len(fi.docLen) == 0 {
		return 0
	}
	return float64(fi.totalLen) / float64(len(fi.docLen))
}

// removeDoc drops every posting a file contributed to this field, as part
// of a rebuild (§3 "after a file re-ingestion, no pre-ingestion ... entry
// ... remains queryable").
func (fi *fieldIndex) removeDoc(file types.FileID) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if l, ok := fi.docLen[file]; ok {
		fi.totalLen -= int64(l)
		delete(fi.docLen, file)
	}
	for term, docs := range fi.postings {
		if _, ok := docs[file]; ok {
			delete(docs, file)
			if len(docs) == 0 {
				delete(fi.postings, term)
			}
		}
	}
}

func (fi *fieldIndex) addTerms(file types.FileID, tokens []Token, lineOf func(pos int) int) {
	if len(tokens) == 0 {
		return
	}
	fi.mu.Lock()
	defer fi.mu.Unlock()
	for _, tok := range tokens {
		docs, ok := fi.postings[tok.Term]
		if !ok {
			docs = make(map[types.FileID]*Posting)
			fi.postings[tok.Term] = docs
		}
		p, ok := docs[file]
		if !ok {
			p = &Posting{File: file}
			docs[file] = p
		}
		p.Freq++
		p.Positions = append(p.Positions, tok.Position)
		if lineOf != nil {
			p.Lines = append(p.Lines, lineOf(tok.Position))
		}
	}
	fi.totalLen += int64(len(tokens))
	fi.docLen[file] = fi.docLen[file] + len(tokens)
}

// Index is the Full-Text Layer: one fieldIndex per Field, plus enough
// bookkeeping to atomically replace a file's contribution on re-ingestion.
type Index struct {
	fields    map[Field]*fieldIndex
	docsMu    sync.RWMutex
	docFields map[types.FileID]map[Field]bool // which fields a file has postings in, for removal
}

// New constructs an empty Index.
func New() *Index {
	idx := &Index{
		fields:    make(map[Field]*fieldIndex),
		docFields: make(map[types.FileID]map[Field]bool),
	}
	for _, f := range allFields {
		idx.fields[f] = newFieldIndex()
	}
	return idx
}

// IndexDocument replaces doc's prior contribution (if any) and indexes its
// current content across every field. Safe to call concurrently for
// different files. Calls for the same file must not overlap: each field's
// lock is held only while that field is written, so two overlapping calls
// can both add their postings after both removals.
func (idx *Index) IndexDocument(doc *Document) {
	idx.RemoveDocument(doc.File)

	lineStarts := make([]int, 0, len(doc.Lines))
	pos := 0
	for _, l := range doc.Lines {
		lineStarts = append(lineStarts, pos)
		pos += len(Tokenize(l.Text))
	}
	lineOf := func(tokenPos int) int {
		line := 0
		for i, start := range lineStarts {
			if tokenPos >= start {
				line = i
			} else {
				break
			}
		}
		return line + 1 // 1-indexed
	}

	touched := map[Field]bool{}

	idx.fields[FieldPath].addTerms(doc.File, Tokenize(doc.Path), nil)
	touched[FieldPath] = true

	idx.fields[FieldContent].addTerms(doc.File, Tokenize(doc.Content()), lineOf)
	touched[FieldContent] = true

	if len(doc.Symbols) > 0 {
		idx.fields[FieldSymbols].addTerms(doc.File, Tokenize(strings.Join(doc.Symbols, " ")), nil)
		touched[FieldSymbols] = true
	}

	if doc.Language != "" {
		idx.fields[FieldLanguage].addTerms(doc.File, []Token{{Term: strings.ToLower(string(doc.Language)), Position: 0}}, nil)
		touched[FieldLanguage] = true
	}

	funcTerms := scopeTerms(doc.Lines, func(l LineRecord) string { return l.ContainingFunction })
	for term, lines := range funcTerms {
		idx.addScopeTerm(FieldContainingFunction, doc.File, term, lines)
	}
	if len(funcTerms) > 0 {
		touched[FieldContainingFunction] = true
	}

	typeTerms := scopeTerms(doc.Lines, func(l LineRecord) string { return l.ContainingType })
	for term, lines := range typeTerms {
		idx.addScopeTerm(FieldContainingType, doc.File, term, lines)
	}
	if len(typeTerms) > 0 {
		touched[FieldContainingType] = true
	}

	idx.docsMu.Lock()
	idx.docFields[doc.File] = touched
	idx.docsMu.Unlock()
}

func (idx *Index) addScopeTerm(field Field, file types.FileID, term string, lines []int) {
	fi := idx.fields[field]
	fi.mu.Lock()
	defer fi.mu.Unlock()
	docs, ok := fi.postings[term]
	if !ok {
		docs = make(map[types.FileID]*Posting)
		fi.postings[term] = docs
	}
	p, ok := docs[file]
	if !ok {
		p = &Posting{File: file}
		docs[file] = p
	}
	p.Freq += len(lines)
	p.Lines = append(p.Lines, lines...)
}

// scopeTerms groups line numbers (1-indexed) by the lowercased scope name
// pick returns for that line, skipping empty scopes.
func scopeTerms(lines []LineRecord, pick func(LineRecord) string) map[string][]int {
	terms := map[string][]int{}
	for i, l := range lines {
		name := pick(l)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		terms[key] = append(terms[key], i+1)
	}
	return terms
}

// RemoveDocument drops every posting file contributed, across all fields.
func (idx *Index) RemoveDocument(file types.FileID) {
	idx.docsMu.Lock()
	fields, ok := idx.docFields[file]
	delete(idx.docFields, file)
	idx.docsMu.Unlock()
	if !ok {
		return
	}
	for f := range fields {
		idx.fields[f].removeDoc(file)
	}
}

// DocCount returns how many distinct files have any indexed content.
func (idx *Index) DocCount() int {
	idx.docsMu.RLock()
	defer idx.docsMu.RUnlock()
	return len(idx.docFields)
}
