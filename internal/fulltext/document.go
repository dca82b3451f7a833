package fulltext

import "github.com/standardbeagle/codeintel/internal/types"

// LineRecord captures one line of a Document's content together with the
// declaration it falls inside, feeding the containing_function and
// containing_type fields (§4.4).
type LineRecord struct {
	Text               string
	ContainingFunction string
	ContainingType     string
}

// Document is one file's full-text record (§4.4's per-document field set:
// path, content, symbols, language, line_number, containing_function,
// containing_type). Lines is the file split on "\n"; line_number queries
// resolve against its index.
type Document struct {
	File     types.FileID
	Path     string
	Language types.Language
	Symbols  []string
	Lines    []LineRecord
}

// Content joins every line back into the full file text, the unit Tokenize
// operates on for the content field.
func (d *Document) Content() string {
	out := make([]string, len(d.Lines))
	for i, l := range d.Lines {
		out[i] = l.Text
	}
	return joinLines(out)
}

func joinLines(lines []string) string {
	total := 0
	for _, l := range lines {
		total += len(l) + 1
	}
	buf := make([]byte, 0, total)
	for i, l := range lines {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, l...)
	}
	return string(buf)
}
