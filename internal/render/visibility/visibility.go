// Package visibility decides which markdown syntax markers are shown.
//
// Markers are hidden by default; a marker is revealed while the cursor or
// selection is on it. Paired inline markers reveal whenever the selection
// touches the full formatted span, so placing the cursor anywhere inside
// "**bold**" shows both asterisk pairs. Block markers reveal whenever the
// cursor is anywhere within their enclosing block.
package visibility

import (
	"github.com/dshills/inkwell/internal/engine/buffer"
	"github.com/dshills/inkwell/internal/render"
)

// State is the computed set of visible syntax spans. The zero value hides
// everything.
type State struct {
	visible map[string]struct{}
}

// Compute determines marker visibility for a cursor position or selection.
// sel is the selection char range; a bare cursor is an empty range at the
// cursor offset. blocks are the enclosing block ranges in document order
// (paragraph char ranges).
func Compute(spans []render.SyntaxSpanInfo, sel buffer.Range, blocks []buffer.Range) State {
	st := State{visible: make(map[string]struct{})}

	for _, span := range spans {
		if isVisible(span, sel, blocks) {
			st.visible[span.SynID] = struct{}{}
		}
	}
	return st
}

// IsVisible reports whether the span should be rendered visibly.
func (s State) IsVisible(synID string) bool {
	_, ok := s.visible[synID]
	return ok
}

// VisibleCount returns the number of visible spans.
func (s State) VisibleCount() int {
	return len(s.visible)
}

func isVisible(span render.SyntaxSpanInfo, sel buffer.Range, blocks []buffer.Range) bool {
	if span.Type == render.SyntaxBlock {
		if block, ok := enclosingBlock(span, blocks); ok {
			return overlapsInclusive(block, sel)
		}
		// No known block: fall back to the marker's own range.
		return overlapsInclusive(span.CharRange, sel)
	}

	if span.FormattedRange != nil {
		return overlapsInclusive(*span.FormattedRange, sel)
	}
	return overlapsInclusive(span.CharRange, sel)
}

// overlapsInclusive reports range overlap counting both endpoints, so a
// cursor sitting exactly at a span edge still reveals it.
func overlapsInclusive(r, sel buffer.Range) bool {
	return sel.Start <= r.End && r.Start <= sel.End
}

func enclosingBlock(span render.SyntaxSpanInfo, blocks []buffer.Range) (buffer.Range, bool) {
	for _, b := range blocks {
		if b.ContainsInclusive(span.CharRange.Start) {
			return b, true
		}
	}
	return buffer.Range{}, false
}
