// Package astquery implements the AST Query Layer (component E): a small
// selector language over tree-sitter node kinds with named captures,
// evaluated against a parser.Tree. Grounded on the structural
// pattern-matching idiom in internal/core/assembly_search.go (fragment
// matching against cached trees, scored and ranked) and on the same
// node-kind-dispatch table compactor/extractor.go builds from
// go-tree-sitter's Node API, generalized here from "which declarations
// exist" to "does this chain of node kinds occur, with captures".
package astquery

import "strings"

// segment is one step of a Selector: match a node kind (or "*" for any
// kind), optionally capturing it under a name.
type segment struct {
	kind    string
	capture string
	descend bool // true if reached via ">>" (any depth) rather than ">" (direct child)
}

// Selector is a parsed structural query: a chain of segments, each
// optionally naming a capture, connected by ">" (direct child) or ">>"
// (descendant at any depth). The first segment anchors the match at any
// node in the tree; subsequent segments must be found within the
// previous segment's subtree.
//
// Syntax: `kind[@capture] (('>'|'>>') kind[@capture])*`
// Example: `function_declaration@fn >> call_expression@call`
type Selector struct {
	segments []segment
}

// Parse compiles a selector string (§4.5 "a small selector language (node
// kinds plus named captures)"). Whitespace around operators is optional.
func Parse(query string) (*Selector, error) {
	fields := tokenizeSelector(query)
	if len(fields) == 0 {
		return nil, errEmptySelector
	}
	sel := &Selector{}
	descend := false
	for _, f := range fields {
		switch f {
		case ">":
			descend = false
			continue
		case ">>":
			descend = true
			continue
		}
		kind, capture := splitCapture(f)
		if kind == "" {
			return nil, errEmptySegment
		}
		sel.segments = append(sel.segments, segment{kind: kind, capture: capture, descend: descend})
		descend = false
	}
	if len(sel.segments) == 0 {
		return nil, errEmptySelector
	}
	return sel, nil
}

func splitCapture(token string) (kind, capture string) {
	idx := strings.IndexByte(token, '@')
	if idx < 0 {
		return token, ""
	}
	return token[:idx], token[idx+1:]
}

// tokenizeSelector splits on whitespace while keeping ">" and ">>" as
// standalone tokens even when written without surrounding spaces
// ("a>b" and "a > b" both parse).
func tokenizeSelector(query string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		case r == '>':
			flush()
			if i+1 < len(runes) && runes[i+1] == '>' {
				tokens = append(tokens, ">>")
				i++
			} else {
				tokens = append(tokens, ">")
			}
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return tokens
}
