package fulltext

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
)

// Token is one normalized term at a position within a field's text, used to
// build postings and to satisfy phrase queries (adjacent Positions).
type Token struct {
	Term     string
	Position int
}

// stemMinLength mirrors Stemmer default (internal/semantic
// StemmingConfig.MinLength): short identifiers like "id" or "db" stem to
// themselves more often than not and are cheap to leave alone.
const stemMinLength = 3

// Tokenize splits text into normalized terms. Word boundaries are runs of
// letters/digits/underscore; additionally, identifier-style text is split
// on camelCase and snake_case boundaries so "parseJSON" and "parse_json"
// both index to the same "parse"/"json" terms code search depends on.
func Tokenize(text string) []Token {
	var out []Token
	pos := 0
	for _, word := range splitWords(text) {
		for _, part := range splitIdentifier(word) {
			term := strings.ToLower(part)
			if len(term) >= stemMinLength {
				term = porter2.Stem(term)
			}
			if term == "" {
				continue
			}
			out = append(out, Token{Term: term, Position: pos})
			pos++
		}
	}
	return out
}

func splitWords(text string) []string {
	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			words = append(words, b.String())
			b.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return words
}

// splitIdentifier breaks "parseJSONValue" into ["parse","JSON","Value"] and
// "parse_json_value" into ["parse","json","value"], so both index styles
// converge on the same term set.
func splitIdentifier(word string) []string {
	if strings.Contains(word, "_") {
		parts := strings.Split(word, "_")
		var out []string
		for _, p := range parts {
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	}

	runes := []rune(word)
	if len(runes) == 0 {
		return nil
	}
	var out []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true // "JSONValue" -> "JSON", "Value"
		case unicode.IsLetter(prev) && unicode.IsDigit(cur), unicode.IsDigit(prev) && unicode.IsLetter(cur):
			boundary = true
		}
		if boundary {
			out = append(out, string(runes[start:i]))
			start = i
		}
	}
	out = append(out, string(runes[start:]))
	return out
}
