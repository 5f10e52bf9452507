package render

import (
	"github.com/dshills/inkwell/internal/engine/buffer"
)

// SyntaxType distinguishes inline paired markers from block-level markers.
type SyntaxType uint8

const (
	// SyntaxInline is a paired inline marker such as ** or `.
	SyntaxInline SyntaxType = iota

	// SyntaxBlock is a block-level marker such as a heading prefix.
	SyntaxBlock
)

// String returns the string representation of the syntax type.
func (st SyntaxType) String() string {
	switch st {
	case SyntaxInline:
		return "inline"
	case SyntaxBlock:
		return "block"
	default:
		return "unknown"
	}
}

// SyntaxSpanInfo describes one syntax marker in the source.
type SyntaxSpanInfo struct {
	// SynID uniquely identifies the span for visibility queries.
	SynID string

	// CharRange is the marker's own char range in the document.
	CharRange buffer.Range

	// Type is the marker kind.
	Type SyntaxType

	// FormattedRange, when present, is the full paired-marker span
	// including both markers (e.g. the whole of "**bold**"). It is nil
	// for unpaired markers such as a heading prefix.
	FormattedRange *buffer.Range
}

// OffsetMapping relates a run of source chars to one rendered leaf node.
type OffsetMapping struct {
	// ByteRange and CharRange are the source coordinates the leaf
	// covers, absolute in the document.
	ByteRange ByteRange
	CharRange buffer.Range

	// NodeID is the leaf's index in document order within its paragraph.
	NodeID int

	// CharOffsetInNode is the char offset of CharRange.Start within the
	// leaf node's text content.
	CharOffsetInNode int

	// ChildIndex is the index of the leaf's top-level child within the
	// paragraph element, for hosts that address nodes by child path.
	ChildIndex int

	// UTF16Len is the length of the mapped text in UTF-16 code units,
	// as host selection APIs measure it.
	UTF16Len int
}

// ByteRange is a half-open byte range [Start, End).
type ByteRange struct {
	Start int
	End   int
}

// Shift returns the range moved by delta.
func (r ByteRange) Shift(delta int) ByteRange {
	return ByteRange{Start: r.Start + delta, End: r.End + delta}
}

// ParagraphRender is one rendered paragraph.
type ParagraphRender struct {
	// ID is stable across cache reuse and shifting; it changes only
	// when the paragraph is re-rendered from scratch.
	ID string

	// ByteRange and CharRange locate the paragraph source, absolute in
	// the document. Entries in a cache are non-overlapping and sorted
	// in document order.
	ByteRange ByteRange
	CharRange buffer.Range

	// HTML is the rendered markup with syntax markers hidden.
	HTML string

	// OffsetMap has one entry per rendered leaf node, sorted by
	// CharRange.
	OffsetMap []OffsetMapping

	// SyntaxSpans are the marker spans found in this paragraph, sorted
	// by CharRange.
	SyntaxSpans []SyntaxSpanInfo

	// SourceHash is a fast (non-cryptographic) hash of the paragraph
	// source used for change detection.
	SourceHash uint64
}

// shifted returns a copy of the render moved by the given char and byte
// deltas. The HTML and node structure are untouched.
func (p ParagraphRender) shifted(charDelta, byteDelta int) ParagraphRender {
	out := p
	out.CharRange = p.CharRange.Shift(charDelta)
	out.ByteRange = p.ByteRange.Shift(byteDelta)

	if p.OffsetMap != nil {
		out.OffsetMap = make([]OffsetMapping, len(p.OffsetMap))
		for i, m := range p.OffsetMap {
			m.CharRange = m.CharRange.Shift(charDelta)
			m.ByteRange = m.ByteRange.Shift(byteDelta)
			out.OffsetMap[i] = m
		}
	}

	if p.SyntaxSpans != nil {
		out.SyntaxSpans = make([]SyntaxSpanInfo, len(p.SyntaxSpans))
		for i, s := range p.SyntaxSpans {
			s.CharRange = s.CharRange.Shift(charDelta)
			if s.FormattedRange != nil {
				fr := s.FormattedRange.Shift(charDelta)
				s.FormattedRange = &fr
			}
			out.SyntaxSpans[i] = s
		}
	}
	return out
}
