package asm

import "fmt"

// A SourceLocation identifies a span of source text: the file it came
// from (an index into the fileTable) and its 1-based start and end
// line/column. It carries no byte offsets.
type SourceLocation struct {
	FileIndex int
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// merge returns a location spanning from the start of l to the end of o.
func (l SourceLocation) merge(o SourceLocation) SourceLocation {
	return SourceLocation{
		FileIndex: l.FileIndex,
		StartLine: l.StartLine,
		StartCol:  l.StartCol,
		EndLine:   o.EndLine,
		EndCol:    o.EndCol,
	}
}

// A fileTable tracks the set of source files read during an assembly,
// by insertion order, so that locations can carry a small integer
// index rather than a repeated path string.
type fileTable struct {
	paths []string
}

func (t *fileTable) add(path string) int {
	t.paths = append(t.paths, path)
	return len(t.paths) - 1
}

func (t *fileTable) path(index int) string {
	if index < 0 || index >= len(t.paths) {
		return "<unknown>"
	}
	return t.paths[index]
}

// splitLines splits source text into lines, treating "\n", "\r\n" and
// "\r" all as line breaks, per the source-file textual format in the
// specification.
func splitLines(text string) []string {
	var lines []string
	start := 0
	i := 0
	for i < len(text) {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			i++
			start = i
		case '\r':
			lines = append(lines, text[start:i])
			i++
			if i < len(text) && text[i] == '\n' {
				i++
			}
			start = i
		default:
			i++
		}
	}
	lines = append(lines, text[start:])
	return lines
}

// formatLocation renders a diagnostic-format location prefix:
// "<file>:<line>:<col>". Path separators are normalized to forward
// slashes here, via normalizePath.
func formatLocation(files *fileTable, loc SourceLocation) string {
	return fmt.Sprintf("%s:%d:%d", normalizePath(files.path(loc.FileIndex)), loc.StartLine, loc.StartCol)
}

func normalizePath(path string) string {
	out := make([]byte, len(path))
	for i := 0; i < len(path); i++ {
		if path[i] == '\\' {
			out[i] = '/'
		} else {
			out[i] = path[i]
		}
	}
	return string(out)
}
