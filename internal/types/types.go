// Package types holds the small value types shared across every layer of
// the engine: file identity, language tags, symbol/element kinds, and spans.
// Keeping these in one leaf package avoids import cycles between the
// parser, compactor, symbol, and retrieval layers.
package types

import "fmt"

// FileID is a process-local, monotonically assigned identifier for a
// SourceFile. It is stable across re-ingestion of the same path; only the
// ContentHash changes when bytes change.
type FileID uint32

// ContentHash identifies a byte buffer (xxhash64 of the raw bytes).
type ContentHash uint64

// Language is the closed enumeration of supported grammars (§3).
type Language string

const (
	LangRust       Language = "rust"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangGo         Language = "go"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangJava       Language = "java"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangSwift      Language = "swift"
	LangKotlin     Language = "kotlin"
	LangScala      Language = "scala"
	LangHaskell    Language = "haskell"
	LangElixir     Language = "elixir"
	LangCSharp     Language = "csharp"
	LangBash       Language = "bash"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangJSON       Language = "json"
	LangTOML       Language = "toml"
	LangYAML       Language = "yaml"
	LangMarkdown   Language = "markdown"
	LangSQL        Language = "sql"
	LangLua        Language = "lua"
	LangOCaml      Language = "ocaml"
	LangZig        Language = "zig"
	LangUnknown    Language = "unknown"
)

// extensionTable maps file extensions to languages. Detection falls back to
// a shebang check (see DetectLanguage) when the extension is unknown.
var extensionTable = map[string]Language{
	".rs": LangRust, ".py": LangPython, ".js": LangJavaScript, ".jsx": LangJavaScript,
	".mjs": LangJavaScript, ".cjs": LangJavaScript, ".ts": LangTypeScript, ".tsx": LangTypeScript,
	".go": LangGo, ".c": LangC, ".h": LangC, ".cpp": LangCPP, ".cc": LangCPP, ".cxx": LangCPP,
	".hpp": LangCPP, ".java": LangJava, ".rb": LangRuby, ".php": LangPHP, ".swift": LangSwift,
	".kt": LangKotlin, ".kts": LangKotlin, ".scala": LangScala, ".hs": LangHaskell,
	".ex": LangElixir, ".exs": LangElixir, ".cs": LangCSharp, ".sh": LangBash, ".bash": LangBash,
	".html": LangHTML, ".htm": LangHTML, ".css": LangCSS, ".json": LangJSON, ".toml": LangTOML,
	".yaml": LangYAML, ".yml": LangYAML, ".md": LangMarkdown, ".markdown": LangMarkdown,
	".sql": LangSQL, ".lua": LangLua, ".ml": LangOCaml, ".mli": LangOCaml, ".zig": LangZig,
}

var shebangTable = []struct {
	prefix string
	lang   Language
}{
	{"#!/usr/bin/env python", LangPython},
	{"#!/usr/bin/python", LangPython},
	{"#!/usr/bin/env node", LangJavaScript},
	{"#!/usr/bin/env bash", LangBash},
	{"#!/bin/bash", LangBash},
	{"#!/bin/sh", LangBash},
	{"#!/usr/bin/env ruby", LangRuby},
	{"#!/usr/bin/env lua", LangLua},
}

// DetectLanguage resolves a Language from a file extension, falling back to
// a shebang check on the first line of content when the extension is not
// recognized. Unrecognized input yields LangUnknown, never an error: the
// compactor's text-based fallback is always well-defined for it.
func DetectLanguage(path string, firstLine []byte) Language {
	ext := extOf(path)
	if lang, ok := extensionTable[ext]; ok {
		return lang
	}
	for _, sb := range shebangTable {
		if len(firstLine) >= len(sb.prefix) && string(firstLine[:len(sb.prefix)]) == sb.prefix {
			return sb.lang
		}
	}
	return LangUnknown
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i:]
		case '/', '\\':
			return ""
		}
	}
	return ""
}

// ElementKind enumerates the kinds an ExtractedElement or Symbol may take.
type ElementKind string

const (
	KindFunction  ElementKind = "function"
	KindMethod    ElementKind = "method"
	KindType      ElementKind = "type"
	KindInterface ElementKind = "trait_or_interface"
	KindEnum      ElementKind = "enum"
	KindModule    ElementKind = "module"
	KindConstant  ElementKind = "constant"
	KindMacro     ElementKind = "macro"
)

// Visibility is public/private/protected. The compactor derives it from a
// declaration's name alone (see compactor's visibilityOf), never from
// modifiers, and never assigns VisProtected.
type Visibility string

const (
	VisPublic    Visibility = "public"
	VisPrivate   Visibility = "private"
	VisProtected Visibility = "protected"
)

// ByteSpan is a half-open [Start, End) byte range into a SourceFile's bytes.
type ByteSpan struct {
	Start int
	End   int
}

func (s ByteSpan) Len() int { return s.End - s.Start }

// LineColSpan is the human-facing 1-indexed counterpart of ByteSpan.
type LineColSpan struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

func (s LineColSpan) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// CompactionLevel is the compression level requested of the AST Compactor.
type CompactionLevel int

const (
	LevelLight CompactionLevel = iota
	LevelMedium
	LevelHard
)

func (l CompactionLevel) String() string {
	switch l {
	case LevelLight:
		return "light"
	case LevelMedium:
		return "medium"
	case LevelHard:
		return "hard"
	default:
		return "unknown"
	}
}

// RatioBand is the [min, max] target compression ratio for a level (§4.2).
type RatioBand struct{ Min, Max float64 }

func (l CompactionLevel) Band() RatioBand {
	switch l {
	case LevelLight:
		return RatioBand{0.05, 0.35}
	case LevelMedium:
		return RatioBand{0.36, 0.65}
	default:
		return RatioBand{0.66, 0.90}
	}
}

// DocumentId identifies a Document in the Vector Store (§3 "Document").
// Monotonically assigned within a process; never reused after eviction, so
// a stale DocumentId a caller is still holding simply misses rather than
// silently resolving to an unrelated, later document.
type DocumentId uint64

// OperatingMode gates which tool side-effect classes an agent may invoke.
type OperatingMode string

const (
	ModePlan   OperatingMode = "plan"
	ModeBuild  OperatingMode = "build"
	ModeReview OperatingMode = "review"
)

func (m OperatingMode) String() string { return string(m) }
