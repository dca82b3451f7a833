// Package compactor implements the AST Compactor (§4.2): per-language tree
// walking to extract ExtractedElements, projected at one of three
// compression levels. Grounded on internal/parser/unified_extractor.go,
// whose node-kind switch this package's Extract (via its declNodeKinds
// table) generalizes across
// grammars instead of special-casing each language's extractor pass
// separately.
package compactor

import "strings"

// lightPunctWeight and otherPunctWeight are the per-punctuation-run weights
// the token estimator
// uses (§9 Open Question: "pick one and document it"). Matched brackets
// and delimiters are common enough in source to weigh less than a real
// identifier or keyword; other punctuation runs (operators, etc.) weigh a
// little more since they often stand in for a whole token in spoken code
// ("plus-equals", "arrow").
const (
	lightPunctWeight = 0.25
	otherPunctWeight = 0.5
)

var lightPunct = map[byte]bool{
	'(': true, ')': true, '{': true, '}': true, '[': true, ']': true,
	'.': true, ',': true, ';': true, ':': true,
}

// CountTokens is the language-neutral token estimator used for both
// "original" and "compressed" counts so ratios stay internally consistent
// (§4.2 "Token counting"). It splits on whitespace, then additionally
// splits runs of punctuation out of each whitespace-separated unit so that
// e.g. "foo();" contributes more than one unit.
func CountTokens(text string) int {
	var total float64
	for _, word := range strings.Fields(text) {
		total += tokensInWord(word)
	}
	return int(total + 0.5) // round to nearest int
}

func tokensInWord(word string) float64 {
	if word == "" {
		return 0
	}
	var total float64
	runStart := -1
	flushIdentifier := func(start, end int) {
		if end > start {
			total += 1.0
		}
	}
	flushPunct := func(start, end int) {
		if end <= start {
			return
		}
		allLight := true
		for i := start; i < end; i++ {
			if !lightPunct[word[i]] {
				allLight = false
				break
			}
		}
		if allLight {
			total += lightPunctWeight
		} else {
			total += otherPunctWeight
		}
	}

	inPunct := isPunct(word[0])
	runStart = 0
	for i := 1; i < len(word); i++ {
		p := isPunct(word[i])
		if p != inPunct {
			if inPunct {
				flushPunct(runStart, i)
			} else {
				flushIdentifier(runStart, i)
			}
			runStart = i
			inPunct = p
		}
	}
	if inPunct {
		flushPunct(runStart, len(word))
	} else {
		flushIdentifier(runStart, len(word))
	}
	return total
}

func isPunct(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_':
		return false
	default:
		return true
	}
}
