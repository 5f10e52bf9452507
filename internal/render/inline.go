package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/inkwell/internal/engine/buffer"
)

// marker describes one paired inline syntax marker.
type marker struct {
	token string
	tag   string
}

// Ordered longest-first so ** wins over *.
var inlineMarkers = []marker{
	{token: "**", tag: "strong"},
	{token: "~~", tag: "del"},
	{token: "__", tag: "strong"},
	{token: "`", tag: "code"},
	{token: "*", tag: "em"},
	{token: "_", tag: "em"},
}

// renderParagraph renders one paragraph source to HTML, producing the
// offset map and syntax spans with document-absolute ranges.
//
// Syntax markers are omitted from the HTML; the visibility layer decides
// per span whether the host should reveal them. Content inside a paired
// marker is treated as literal text (no nesting).
func renderParagraph(src paragraphSource) ParagraphRender {
	text := src.text
	charBase := src.charStart
	byteBase := src.byteStart

	var spans []SyntaxSpanInfo

	tag := "p"
	// Heading prefix: one to six '#' followed by a space.
	if level := headingLevel(text); level > 0 {
		tag = fmt.Sprintf("h%d", level)
		markerLen := level + 1 // hashes plus the space
		spans = append(spans, SyntaxSpanInfo{
			SynID:     uuid.NewString(),
			CharRange: buffer.Range{Start: charBase, End: charBase + markerLen},
			Type:      SyntaxBlock,
		})
		text = text[markerLen:]
		charBase += markerLen
		byteBase += markerLen
	}

	var sb strings.Builder
	sb.WriteString("<" + tag + ">")

	var mappings []OffsetMapping
	nodeID := 0
	childIndex := 0

	runes := []rune(text)
	charOff := charBase // absolute char offset of runes[i]
	byteOff := byteBase

	litStart := 0 // index into runes of the pending literal run
	litStartChar := charOff
	litStartByte := byteOff

	flushLiteral := func(endRune int, endChar, endByte int) {
		if endRune <= litStart {
			return
		}
		content := string(runes[litStart:endRune])
		sb.WriteString(html.EscapeString(content))
		mappings = append(mappings, OffsetMapping{
			ByteRange:        ByteRange{Start: litStartByte, End: endByte},
			CharRange:        buffer.Range{Start: litStartChar, End: endChar},
			NodeID:           nodeID,
			CharOffsetInNode: 0,
			ChildIndex:       childIndex,
			UTF16Len:         utf16Len(content),
		})
		nodeID++
		childIndex++
	}

	i := 0
	for i < len(runes) {
		m, contentLen, ok := matchMarker(runes, i)
		if !ok {
			charOff++
			byteOff += len(string(runes[i]))
			i++
			continue
		}

		flushLiteral(i, charOff, byteOff)

		tokenChars := len([]rune(m.token))
		content := string(runes[i+tokenChars : i+tokenChars+contentLen])
		openStart := charOff
		contentStart := charOff + tokenChars
		contentEnd := contentStart + contentLen
		closeEnd := contentEnd + tokenChars
		formatted := buffer.Range{Start: openStart, End: closeEnd}

		spans = append(spans,
			SyntaxSpanInfo{
				SynID:          uuid.NewString(),
				CharRange:      buffer.Range{Start: openStart, End: contentStart},
				Type:           SyntaxInline,
				FormattedRange: &formatted,
			},
			SyntaxSpanInfo{
				SynID:          uuid.NewString(),
				CharRange:      buffer.Range{Start: contentEnd, End: closeEnd},
				Type:           SyntaxInline,
				FormattedRange: &formatted,
			},
		)

		sb.WriteString("<" + m.tag + ">")
		sb.WriteString(html.EscapeString(content))
		sb.WriteString("</" + m.tag + ">")

		contentByteStart := byteOff + len(m.token)
		mappings = append(mappings, OffsetMapping{
			ByteRange:        ByteRange{Start: contentByteStart, End: contentByteStart + len(content)},
			CharRange:        buffer.Range{Start: contentStart, End: contentEnd},
			NodeID:           nodeID,
			CharOffsetInNode: 0,
			ChildIndex:       childIndex,
			UTF16Len:         utf16Len(content),
		})
		nodeID++
		childIndex++

		consumed := tokenChars*2 + contentLen
		i += consumed
		charOff += consumed
		byteOff += len(m.token)*2 + len(content)

		litStart = i
		litStartChar = charOff
		litStartByte = byteOff
	}
	flushLiteral(i, charOff, byteOff)

	sb.WriteString("</" + tag + ">")

	return ParagraphRender{
		ID:          uuid.NewString(),
		ByteRange:   ByteRange{Start: src.byteStart, End: src.byteEnd()},
		CharRange:   buffer.Range{Start: src.charStart, End: src.charEnd()},
		HTML:        sb.String(),
		OffsetMap:   mappings,
		SyntaxSpans: spans,
		SourceHash:  hashSource(src.text),
	}
}

// matchMarker reports whether a paired marker opens at runes[i], returning
// the marker and the char length of its content.
func matchMarker(runes []rune, i int) (marker, int, bool) {
	rest := string(runes[i:])
	for _, m := range inlineMarkers {
		if !strings.HasPrefix(rest, m.token) {
			continue
		}
		tokenChars := len([]rune(m.token))
		inner := runes[i+tokenChars:]
		if end := findClose(inner, m.token); end > 0 {
			return m, end, true
		}
	}
	return marker{}, 0, false
}

// findClose returns the char length of the content before the closing
// token, or -1 when the marker is unpaired. Empty content does not count
// as a pair ("**" alone stays literal).
func findClose(runes []rune, token string) int {
	s := string(runes)
	idx := strings.Index(s, token)
	if idx <= 0 {
		return -1
	}
	content := s[:idx]
	if strings.ContainsRune(content, '\n') {
		return -1
	}
	return len([]rune(content))
}

// headingLevel returns 1-6 for a heading prefix, 0 otherwise.
func headingLevel(text string) int {
	level := 0
	for level < len(text) && level < 6 && text[level] == '#' {
		level++
	}
	if level == 0 || level >= len(text) || text[level] != ' ' {
		return 0
	}
	return level
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
