package compactor

import "strings"

// textFallback produces a well-defined compacted projection for files with
// no grammar (or a hard parser failure, §4.2 "Failure"), so the three
// compaction levels stay defined for every language the engine can ever
// see. It recognizes nothing structurally; it simply keeps a shrinking
// fraction of lines: every line that looks like a declaration (at most one
// leading space or tab and starting with a common keyword), plus every
// Nth line by position.
func textFallback(content string, level interface {
	String() string
}) string {
	lines := strings.Split(content, "\n")
	keepEvery := map[string]int{"light": 1, "medium": 3, "hard": 8}[level.String()]
	if keepEvery == 0 {
		keepEvery = 1
	}

	var b strings.Builder
	for i, line := range lines {
		if looksLikeDeclaration(line) || i%keepEvery == 0 {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func looksLikeDeclaration(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return false
	}
	indent := len(line) - len(trimmed)
	if indent > 1 {
		return false
	}
	for _, kw := range []string{"func ", "def ", "class ", "fn ", "struct ", "interface ", "type ", "module ", "public ", "private ", "export "} {
		if strings.HasPrefix(trimmed, kw) {
			return true
		}
	}
	return false
}
