package render

import (
	"strings"
	"unicode/utf8"
)

// paragraphSource is one blank-line delimited semantic unit of the source.
type paragraphSource struct {
	text      string
	charStart int
	byteStart int
}

func (p paragraphSource) charEnd() int {
	return p.charStart + utf8.RuneCountInString(p.text)
}

func (p paragraphSource) byteEnd() int {
	return p.byteStart + len(p.text)
}

// splitParagraphs splits source into paragraphs at blank lines. A line
// containing only whitespace counts as blank. Ranges cover the paragraph
// text itself, not the separating blank lines.
func splitParagraphs(source string) []paragraphSource {
	var out []paragraphSource

	byteOff := 0
	charOff := 0
	var cur *paragraphSource

	for byteOff <= len(source) {
		lineEnd := strings.IndexByte(source[byteOff:], '\n')
		var line string
		if lineEnd < 0 {
			line = source[byteOff:]
			lineEnd = len(source)
		} else {
			line = source[byteOff : byteOff+lineEnd]
			lineEnd = byteOff + lineEnd
		}

		if strings.TrimSpace(line) == "" {
			if cur != nil {
				out = append(out, *cur)
				cur = nil
			}
		} else {
			if cur == nil {
				cur = &paragraphSource{charStart: charOff, byteStart: byteOff}
			} else {
				cur.text += "\n"
			}
			cur.text += line
		}

		if lineEnd == len(source) {
			break
		}
		charOff += utf8.RuneCountInString(line) + 1
		byteOff = lineEnd + 1
	}

	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

// hashSource computes an FNV-1a hash of the paragraph text. Fast change
// detection only, not cryptographic.
func hashSource(s string) uint64 {
	var hash uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= 1099511628211
	}
	return hash
}
