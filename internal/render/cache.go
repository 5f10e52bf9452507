package render

import (
	"sync"

	"github.com/dshills/inkwell/internal/engine/buffer"
)

// Edit describes the char-range impact of one edit on the source:
// [Start, OldEnd) in the old text was replaced by [Start, NewEnd) in the
// new text.
type Edit struct {
	Start  int
	OldEnd int
	NewEnd int
}

// Delta returns the net char-length change.
func (e Edit) Delta() int { return e.NewEnd - e.OldEnd }

// Cache holds the rendered paragraphs of one document and updates them
// incrementally. Rendering cost is bounded by the number of structurally
// affected paragraphs: untouched paragraphs are reused byte-for-byte,
// paragraphs after the edit are shifted without re-rendering their HTML.
type Cache struct {
	mu         sync.RWMutex
	paragraphs []ParagraphRender
}

// NewCache creates an empty render cache.
func NewCache() *Cache {
	return &Cache{}
}

// Render renders the full source from scratch, replacing any cached state.
func (c *Cache) Render(source string) []ParagraphRender {
	srcs := splitParagraphs(source)
	out := make([]ParagraphRender, len(srcs))
	for i, s := range srcs {
		out[i] = renderParagraph(s)
	}

	c.mu.Lock()
	c.paragraphs = out
	c.mu.Unlock()
	return c.snapshotLocked(out)
}

// Update re-renders after an edit. Paragraphs whose content and position
// are unaffected are reused unchanged; paragraphs strictly after the edit
// are shifted by the net length delta; paragraphs touching the edit
// (including its boundaries, where a blank-line insert can merge or split
// paragraphs) are re-rendered.
func (c *Cache) Update(source string, edit Edit) []ParagraphRender {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Index the previous render by paragraph start offset.
	prevByStart := make(map[int]ParagraphRender, len(c.paragraphs))
	for _, p := range c.paragraphs {
		prevByStart[p.CharRange.Start] = p
	}

	delta := edit.Delta()
	srcs := splitParagraphs(source)
	out := make([]ParagraphRender, 0, len(srcs))

	for _, s := range srcs {
		if cached, ok := c.reusable(prevByStart, s, edit, delta); ok {
			out = append(out, cached)
			continue
		}
		out = append(out, renderParagraph(s))
	}

	c.paragraphs = out
	return c.snapshotLocked(out)
}

// reusable finds a cached render matching the new paragraph source, if the
// paragraph is untouched by the edit.
func (c *Cache) reusable(prev map[int]ParagraphRender, s paragraphSource, edit Edit, delta int) (ParagraphRender, bool) {
	// Edits at or next to a paragraph boundary are boundary-affecting:
	// treat one char of slack on both sides as touched.
	if s.charStart <= edit.NewEnd+1 && s.charEnd() >= edit.Start-1 {
		return ParagraphRender{}, false
	}

	oldStart := s.charStart
	if s.charStart > edit.NewEnd {
		oldStart -= delta
	}

	cached, ok := prev[oldStart]
	if !ok || cached.SourceHash != hashSource(s.text) {
		return ParagraphRender{}, false
	}
	if cached.CharRange.Len() != s.charEnd()-s.charStart {
		return ParagraphRender{}, false
	}

	return cached.shifted(s.charStart-cached.CharRange.Start, s.byteStart-cached.ByteRange.Start), true
}

// Paragraphs returns a copy of the current render, sorted in document
// order.
func (c *Cache) Paragraphs() []ParagraphRender {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked(c.paragraphs)
}

// ParagraphAt returns the paragraph whose char range contains the offset.
func (c *Cache) ParagraphAt(off buffer.CharOffset) (ParagraphRender, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.paragraphs {
		if p.CharRange.ContainsInclusive(off) {
			return p, true
		}
	}
	return ParagraphRender{}, false
}

// SyntaxSpans returns every syntax span across all rendered paragraphs,
// in document order.
func (c *Cache) SyntaxSpans() []SyntaxSpanInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []SyntaxSpanInfo
	for _, p := range c.paragraphs {
		out = append(out, p.SyntaxSpans...)
	}
	return out
}

// BlockRanges returns the char range of every paragraph, in document
// order. The visibility layer uses these as enclosing blocks.
func (c *Cache) BlockRanges() []buffer.Range {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]buffer.Range, len(c.paragraphs))
	for i, p := range c.paragraphs {
		out[i] = p.CharRange
	}
	return out
}

func (c *Cache) snapshotLocked(in []ParagraphRender) []ParagraphRender {
	out := make([]ParagraphRender, len(in))
	copy(out, in)
	return out
}
