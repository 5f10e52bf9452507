// Package editor composes the editing core for one document: the text
// buffer, undo history, incremental render cache, syntax visibility,
// and the CRDT mirror that carries local edits to collaborators.
//
// Local edits apply synchronously through Apply. Remote changes land
// in the CRDT document first; RefreshFromRemote then reconciles the
// buffer and re-renders. Render and visibility queries degrade to
// empty results rather than failing the edit loop.
package editor

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/dshills/inkwell/internal/collab/crdt"
	"github.com/dshills/inkwell/internal/diag"
	"github.com/dshills/inkwell/internal/engine/buffer"
	"github.com/dshills/inkwell/internal/engine/history"
	"github.com/dshills/inkwell/internal/render"
	"github.com/dshills/inkwell/internal/render/offsetmap"
	"github.com/dshills/inkwell/internal/render/visibility"
)

// EditRequest is one local edit: the replaced range (empty for a caret
// insert), the replacement text, and the caret before and after.
type EditRequest struct {
	Range        buffer.Range
	Text         string
	CursorBefore buffer.CharOffset
	CursorAfter  buffer.CharOffset
}

// Editor owns one document's editing state.
type Editor struct {
	mu      sync.Mutex
	buf     *buffer.Buffer
	history *history.Manager
	cache   *render.Cache
	doc     *crdt.Document
	log     *diag.Logger
}

// New creates an editor over the initial text. doc may be nil for a
// purely local document.
func New(initial string, doc *crdt.Document, log *diag.Logger) *Editor {
	if log == nil {
		log = diag.NullLogger
	}
	buf := buffer.FromString(initial)
	e := &Editor{
		buf:     buf,
		history: history.NewManager(buf),
		cache:   render.NewCache(),
		doc:     doc,
		log:     log.WithComponent("editor"),
	}
	e.cache.Render(initial)
	return e
}

// Buffer exposes the underlying text buffer for read access.
func (e *Editor) Buffer() *buffer.Buffer { return e.buf }

// Text returns the current document text.
func (e *Editor) Text() string { return e.buf.Text() }

// Apply performs one local edit: buffer, undo record, CRDT mirror, and
// incremental re-render, all synchronously.
func (e *Editor) Apply(req EditRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed, err := e.buf.Replace(req.Range, req.Text)
	if err != nil {
		return err
	}

	e.history.Record(history.EditRecord{
		Offset:       req.Range.Start,
		OldText:      removed,
		NewText:      req.Text,
		CursorBefore: req.CursorBefore,
		CursorAfter:  req.CursorAfter,
	})

	if err := e.mirrorToDoc(req.Range.Start, removed, req.Text); err != nil {
		// The buffer edit already landed; the CRDT will catch up on
		// the next full refresh. Surface the failure regardless.
		e.log.Error("crdt mirror failed: %v", err)
		return err
	}

	e.cache.Update(e.buf.Text(), render.Edit{
		Start:  req.Range.Start,
		OldEnd: req.Range.End,
		NewEnd: req.Range.Start + utf8.RuneCountInString(req.Text),
	})
	return nil
}

// Undo reverts the most recent undo step and returns the caret
// position recorded before it.
func (e *Editor) Undo() (buffer.CharOffset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cursor, err := e.history.Undo()
	if err != nil {
		return 0, err
	}
	e.resyncAfterHistory()
	return cursor, nil
}

// Redo reapplies the most recently undone step.
func (e *Editor) Redo() (buffer.CharOffset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cursor, err := e.history.Redo()
	if err != nil {
		return 0, err
	}
	e.resyncAfterHistory()
	return cursor, nil
}

// CanUndo reports whether an undo step exists.
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether a redo step exists.
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// ApplyRemote imports remote CRDT bytes and reconciles the buffer with
// the merged result.
func (e *Editor) ApplyRemote(delta []byte) error {
	if e.doc == nil {
		return nil
	}
	if err := e.doc.Import(delta); err != nil {
		return err
	}
	return e.RefreshFromRemote()
}

// RefreshFromRemote reconciles the buffer with the CRDT document after
// remote changes were imported. Remote merges can land anywhere, so
// the whole document is treated as dirty and fully re-rendered.
func (e *Editor) RefreshFromRemote() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.doc == nil {
		return nil
	}
	text, err := e.doc.Text()
	if err != nil {
		return fmt.Errorf("read merged document: %w", err)
	}
	if text == e.buf.Text() {
		return nil
	}

	if _, err := e.buf.Replace(buffer.Range{Start: 0, End: e.buf.LenChars()}, text); err != nil {
		return err
	}
	// Positions recorded in history predate the merge; they can no
	// longer be trusted.
	e.history.Clear()
	e.cache.Render(text)
	return nil
}

// Paragraphs returns the current rendered paragraphs in document
// order.
func (e *Editor) Paragraphs() []render.ParagraphRender {
	return e.cache.Paragraphs()
}

// Visibility computes which syntax markers should be revealed for the
// given selection.
func (e *Editor) Visibility(sel buffer.Range) visibility.State {
	return visibility.Compute(e.cache.SyntaxSpans(), sel, e.cache.BlockRanges())
}

// ResolveCursor maps a character offset to a rendered position,
// snapping to the nearest valid position in the hinted direction when
// the offset lands on hidden syntax. The boolean is false when the
// paragraph has no rendered content to map to.
func (e *Editor) ResolveCursor(off buffer.CharOffset, snap offsetmap.SnapDirection) (offsetmap.Position, bool) {
	para, ok := e.cache.ParagraphAt(off)
	if !ok {
		return offsetmap.Position{}, false
	}
	valid, ok := offsetmap.FindNearestValidPosition(para.OffsetMap, off, snap)
	if !ok {
		return offsetmap.Position{}, false
	}
	return offsetmap.Resolve(para.OffsetMap, valid)
}

// mirrorToDoc replays a buffer edit into the CRDT document.
func (e *Editor) mirrorToDoc(offset buffer.CharOffset, removed, inserted string) error {
	if e.doc == nil {
		return nil
	}
	return e.doc.Splice(offset, utf8.RuneCountInString(removed), inserted)
}

// resyncAfterHistory mirrors the buffer's post-undo/redo state into
// the CRDT document and re-renders. History replay already mutated the
// buffer; the CRDT sees it as one whole-document splice.
func (e *Editor) resyncAfterHistory() {
	text := e.buf.Text()
	if e.doc != nil {
		if err := e.replaceDocText(text); err != nil {
			e.log.Error("crdt resync failed: %v", err)
		}
	}
	e.cache.Render(text)
}

func (e *Editor) replaceDocText(text string) error {
	current, err := e.doc.Text()
	if err != nil {
		return err
	}
	if current == text {
		return nil
	}
	return e.doc.Splice(0, utf8.RuneCountInString(current), text)
}
