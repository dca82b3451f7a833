// Grammar registration, adapted from internal/parser/parser_language_setup.go:
// one setup function per language, wiring tree-sitter grammar packages this
// module's go.mod already lists. Languages without a bundled grammar here
// (the remainder of the 27-language enumeration in internal/types) are
// absent from grammarSetups and so always take the Compactor's text-based
// fallback path.
package parser

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/codeintel/internal/types"
)

func hashContent(b []byte) uint64 {
	return xxhash.Sum64(b)
}

func wrap(ptr func() *tree_sitter.Language) func() (*tree_sitter.Language, error) {
	return func() (*tree_sitter.Language, error) {
		lang := ptr()
		if lang == nil {
			return nil, fmt.Errorf("grammar unavailable")
		}
		return lang, nil
	}
}

var grammarSetups = map[types.Language]func() (*tree_sitter.Language, error){
	types.LangGo:         wrap(func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_go.Language()) }),
	types.LangPython:     wrap(func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_python.Language()) }),
	types.LangJavaScript: wrap(func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_javascript.Language()) }),
	types.LangTypeScript: wrap(func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) }),
	types.LangRust:       wrap(func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_rust.Language()) }),
	types.LangJava:       wrap(func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_java.Language()) }),
	types.LangCPP:        wrap(func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_cpp.Language()) }),
	types.LangCSharp:     wrap(func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_csharp.Language()) }),
	types.LangPHP:        wrap(func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP()) }),
	types.LangZig:        wrap(func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_zig.Language()) }),
}

// SupportedLanguages reports which languages have a bundled tree-sitter
// grammar and will use the structural (non-fallback) parse path.
func SupportedLanguages() []types.Language {
	out := make([]types.Language, 0, len(grammarSetups))
	for lang := range grammarSetups {
		out = append(out, lang)
	}
	return out
}
