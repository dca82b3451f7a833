package astquery

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/codeintel/internal/parser"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Result is one Selector match (§4.5 "results carry the captured span and
// its ancestor-kind chain for scope reporting").
type Result struct {
	Captures      map[string]types.ByteSpan
	CaptureText   map[string]string
	AncestorKinds []string // root-to-parent, nearest last
}

// defNodeKinds is a subset of compactor's declNodeKinds (the set of
// tree-sitter node kinds this engine recognizes as declarations), kept
// local to this package; it leaves out func_literal,
// type_alias_declaration, mod_item, namespace_declaration and
// macro_definition. The AST Query Layer's notion of "definition" is
// deliberately independent of the Compactor's extraction options
// (IncludePrivate, MaxDepth, ...), so the two tables are not shared.
var defNodeKinds = map[string]bool{
	"function_declaration": true, "function_definition": true, "function_item": true,
	"method_definition": true, "method_declaration": true,
	"class_declaration": true, "class_definition": true, "class_specifier": true,
	"struct_item": true, "struct_specifier": true, "type_declaration": true,
	"interface_declaration": true, "trait_item": true,
	"enum_declaration": true, "enum_item": true,
	"const_declaration": true, "const_item": true,
}

var identifierKinds = map[string]bool{
	"identifier": true, "type_identifier": true, "field_identifier": true,
	"property_identifier": true,
}

// FindDefinition implements find_definition(name) (§4.5): every declaration
// node whose "name" field (or, absent that, its first identifier child)
// equals name.
func FindDefinition(tree *parser.Tree, name string) []Result {
	root := tree.RootNode()
	if root == nil {
		return nil
	}
	var out []Result
	walkWithAncestry(root, nil, func(n *tree_sitter.Node, ancestors []string) {
		if !defNodeKinds[n.Kind()] {
			return
		}
		declName := declaredName(n, tree.Source)
		if declName != name {
			return
		}
		out = append(out, Result{
			Captures:      map[string]types.ByteSpan{"def": spanOf(n)},
			CaptureText:   map[string]string{"def": declName},
			AncestorKinds: append([]string(nil), ancestors...),
		})
	})
	return out
}

// FindReferences implements find_references(name) (§4.5): every identifier
// node whose text equals name, anywhere in the tree (definitions included —
// callers wanting uses only can diff against FindDefinition's spans).
func FindReferences(tree *parser.Tree, name string) []Result {
	root := tree.RootNode()
	if root == nil {
		return nil
	}
	var out []Result
	walkWithAncestry(root, nil, func(n *tree_sitter.Node, ancestors []string) {
		if !identifierKinds[n.Kind()] {
			return
		}
		text := string(tree.Source[n.StartByte():n.EndByte()])
		if text != name {
			return
		}
		out = append(out, Result{
			Captures:      map[string]types.ByteSpan{"ref": spanOf(n)},
			CaptureText:   map[string]string{"ref": text},
			AncestorKinds: append([]string(nil), ancestors...),
		})
	})
	return out
}

// Eval evaluates a parsed Selector against tree, returning at most one
// Result per node that matches the first segment: each later segment binds
// to the first matching child (or descendant) only, so further matches
// under the same anchor node are not reported.
func Eval(tree *parser.Tree, sel *Selector) []Result {
	root := tree.RootNode()
	if root == nil || len(sel.segments) == 0 {
		return nil
	}
	var out []Result
	walkWithAncestry(root, nil, func(n *tree_sitter.Node, ancestors []string) {
		if !matchesKind(n, sel.segments[0].kind) {
			return
		}
		captures := map[string]types.ByteSpan{}
		texts := map[string]string{}
		if c := sel.segments[0].capture; c != "" {
			captures[c] = spanOf(n)
			texts[c] = string(tree.Source[n.StartByte():n.EndByte()])
		}
		if matchRest(n, sel.segments[1:], tree.Source, captures, texts) {
			out = append(out, Result{
				Captures:      captures,
				CaptureText:   texts,
				AncestorKinds: append([]string(nil), ancestors...),
			})
		}
	})
	return out
}

// matchRest attempts to satisfy the remaining selector segments within
// node's subtree, filling captures/texts in place as it goes. Each segment
// binds to the first child (or descendant) of its kind, with no
// backtracking to later candidates; it returns false as soon as one
// segment finds no node. Captures added before that point stay in the
// maps, which Eval then drops together with the failed anchor.
func matchRest(node *tree_sitter.Node, rest []segment, src []byte, captures map[string]types.ByteSpan, texts map[string]string) bool {
	if len(rest) == 0 {
		return true
	}
	next := rest[0]
	var found *tree_sitter.Node
	if next.descend {
		found = findDescendant(node, next.kind)
	} else {
		found = findDirectChild(node, next.kind)
	}
	if found == nil {
		return false
	}
	if next.capture != "" {
		captures[next.capture] = spanOf(found)
		texts[next.capture] = string(src[found.StartByte():found.EndByte()])
	}
	return matchRest(found, rest[1:], src, captures, texts)
}

func findDirectChild(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && matchesKind(c, kind) {
			return c
		}
	}
	return nil
}

func findDescendant(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if matchesKind(c, kind) {
			return c
		}
		if found := findDescendant(c, kind); found != nil {
			return found
		}
	}
	return nil
}

func matchesKind(n *tree_sitter.Node, kind string) bool {
	return kind == "*" || n.Kind() == kind
}

func spanOf(n *tree_sitter.Node) types.ByteSpan {
	return types.ByteSpan{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func declaredName(n *tree_sitter.Node, src []byte) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return string(src[nameNode.StartByte():nameNode.EndByte()])
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && identifierKinds[c.Kind()] {
			return string(src[c.StartByte():c.EndByte()])
		}
	}
	return ""
}

// walkWithAncestry visits every node in the tree, calling visit with the
// chain of ancestor kinds (root first) seen so far, not including the
// current node itself.
func walkWithAncestry(n *tree_sitter.Node, ancestors []string, visit func(*tree_sitter.Node, []string)) {
	if n == nil {
		return
	}
	visit(n, ancestors)
	childAncestors := append(append([]string(nil), ancestors...), n.Kind())
	for i := uint(0); i < n.ChildCount(); i++ {
		walkWithAncestry(n.Child(i), childAncestors, visit)
	}
}
