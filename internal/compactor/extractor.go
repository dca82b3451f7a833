package compactor

import (
	"regexp"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codeintel/internal/parser"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Options configures one Compact call (§4.2 "Options the compactor
// accepts").
type Options struct {
	Level          types.CompactionLevel
	LanguageHint   types.Language // not read by Compact or Extract: the tree keeps the language it was parsed with
	IncludePrivate bool
	PreserveDocs   bool
	MaxDepth       int // 0 = unbounded
	BodyLineLimit  int // Light level: bodies longer than this are dropped; 0 = default (25)
	Include        *regexp.Regexp
	Exclude        *regexp.Regexp
}

// declNodeKinds maps the tree-sitter node kinds this extractor recognizes,
// across every grammar the Parser Pool bundles, to an ElementKind. Node
// kind strings overlap heavily between grammars (tree-sitter's own
// convention), so one table covers Go, JS/TS, Rust, Java, C/C++, C#, and
// PHP without a per-language visitor — the "tagged-variant dispatch"
// approach §9 "Design Notes" calls for, applied to one concern (element
// kind) rather than a class hierarchy per language.
var declNodeKinds = map[string]types.ElementKind{
	"function_declaration":           types.KindFunction,
	"function_definition":            types.KindFunction,
	"function_item":                  types.KindFunction,
	"func_literal":                   types.KindFunction,
	"method_definition":               types.KindMethod,
	"method_declaration":              types.KindMethod,
	"class_declaration":               types.KindType,
	"class_definition":                types.KindType,
	"class_specifier":                 types.KindType,
	"struct_item":                     types.KindType,
	"struct_specifier":                types.KindType,
	"type_declaration":                types.KindType,
	"type_alias_declaration":          types.KindType,
	"interface_declaration":           types.KindInterface,
	"trait_item":                      types.KindInterface,
	"enum_declaration":                types.KindEnum,
	"enum_item":                       types.KindEnum,
	"mod_item":                        types.KindModule,
	"namespace_declaration":           types.KindModule,
	"const_declaration":               types.KindConstant,
	"const_item":                      types.KindConstant,
	"macro_definition":                types.KindMacro,
}

// Extract walks tree and returns the top-level (and nested) ExtractedElements.
// tree.Raw == nil (unsupported language, or a hard parser failure) yields
// an empty slice; callers should use the text-based fallback in that case.
func Extract(tree *parser.Tree, opts Options) []*Element {
	root := tree.RootNode()
	if root == nil {
		return nil
	}
	var out []*Element
	var walk func(n *tree_sitter.Node, depth int) []*Element
	walk = func(n *tree_sitter.Node, depth int) []*Element {
		if n == nil || (opts.MaxDepth > 0 && depth > opts.MaxDepth) {
			return nil
		}
		var elems []*Element
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			if kind, ok := declNodeKinds[child.Kind()]; ok {
				if el := buildElement(child, tree.Source, kind, opts); el != nil {
					el.Children = walk(child, depth+1)
					elems = append(elems, el)
					continue
				}
			}
			elems = append(elems, walk(child, depth+1)...)
		}
		return elems
	}
	out = walk(root, 0)
	return out
}

func buildElement(n *tree_sitter.Node, src []byte, kind types.ElementKind, opts Options) *Element {
	nameNode := n.ChildByFieldName("name")
	var name string
	if nameNode != nil {
		name = string(src[nameNode.StartByte():nameNode.EndByte()])
	}
	if name == "" {
		return nil
	}
	if opts.Include != nil && !opts.Include.MatchString(name) {
		return nil
	}
	if opts.Exclude != nil && opts.Exclude.MatchString(name) {
		return nil
	}

	vis := visibilityOf(name, n.Kind())
	if vis != types.VisPublic && !opts.IncludePrivate {
		return nil
	}

	start, end := n.StartByte(), n.EndByte()
	sp := n.StartPosition()
	ep := n.EndPosition()

	body := string(src[start:end])
	sig := signatureLine(body)

	return &Element{
		Kind:       kind,
		Name:       name,
		Visibility: vis,
		Signature:  sig,
		Body:       body,
		Doc:        leadingDocComment(src, int(start)),
		Span:       types.ByteSpan{Start: int(start), End: int(end)},
		LineCol: types.LineColSpan{
			StartLine: int(sp.Row) + 1, StartCol: int(sp.Column) + 1,
			EndLine: int(ep.Row) + 1, EndCol: int(ep.Column) + 1,
		},
	}
}

// visibilityOf decides visibility from the name alone: a name starting
// with "_" or with a lowercase ASCII letter is private, anything else is
// public (Go's exported-identifier convention, applied to every grammar).
// nodeKind is not consulted, and explicit modifiers such as "pub" or
// "private" are not read.
func visibilityOf(name, nodeKind string) types.Visibility {
	if len(name) == 0 {
		return types.VisPublic
	}
	if name[0] == '_' {
		return types.VisPrivate
	}
	if name[0] >= 'a' && name[0] <= 'z' {
		// Go convention: lowercase-first is unexported. Other grammars
		// get the same rule; defaulting to private here is the
		// conservative choice so include-private must be explicit.
		return types.VisPrivate
	}
	return types.VisPublic
}

func signatureLine(body string) string {
	for i, c := range body {
		if c == '\n' {
			return body[:i]
		}
		if c == '{' {
			return body[:i]
		}
	}
	return body
}

// leadingDocComment returns the single "//" or "#" comment line directly
// above the declaration at byteOffset, or "" if that line is not a
// comment. Earlier lines of a multi-line comment block are not included.
func leadingDocComment(src []byte, byteOffset int) string {
	i := byteOffset - 1
	// skip the single newline separating the comment block from the decl
	for i >= 0 && (src[i] == ' ' || src[i] == '\t') {
		i--
	}
	if i >= 0 && src[i] == '\n' {
		i--
	}
	end := i + 1
	lineStart := end
	for lineStart > 0 && src[lineStart-1] != '\n' {
		lineStart--
	}
	line := string(src[lineStart:end])
	if !isCommentLine(line) {
		return ""
	}
	return line
}

func isCommentLine(line string) bool {
	trimmed := line
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t') {
		trimmed = trimmed[1:]
	}
	return len(trimmed) >= 1 && (trimmed[0] == '#' || (len(trimmed) >= 2 && trimmed[0] == '/' && trimmed[1] == '/'))
}
