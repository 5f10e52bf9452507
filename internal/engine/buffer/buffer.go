package buffer

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dshills/inkwell/internal/engine/rope"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
)

// Revision identifies a buffer state. It increases with every edit.
type Revision uint64

var revisionCounter atomic.Uint64

func nextRevision() Revision {
	return Revision(revisionCounter.Add(1))
}

// Buffer wraps a Rope with offset validation and revision tracking.
// All methods are thread-safe.
type Buffer struct {
	mu       sync.RWMutex
	rope     rope.Rope
	revision Revision
}

// New creates a new empty buffer.
func New() *Buffer {
	return &Buffer{
		rope:     rope.New(),
		revision: nextRevision(),
	}
}

// FromString creates a buffer with initial content.
func FromString(s string) *Buffer {
	return &Buffer{
		rope:     rope.FromString(s),
		revision: nextRevision(),
	}
}

// Text returns the full buffer content.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.String()
}

// Slice returns the text in the given char range.
func (b *Buffer) Slice(r Range) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if r.Start < 0 || r.Start > r.End || r.End > b.rope.LenChars() {
		return "", ErrRangeInvalid
	}
	return b.rope.SliceChars(r.Start, r.End), nil
}

// LenChars returns the buffer length in Unicode scalar values.
func (b *Buffer) LenChars() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.LenChars()
}

// LenBytes returns the buffer length in UTF-8 bytes.
func (b *Buffer) LenBytes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.LenBytes()
}

// LenUTF16 returns the buffer length in UTF-16 code units.
func (b *Buffer) LenUTF16() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.LenUTF16()
}

// IsEmpty returns true if the buffer contains no text.
func (b *Buffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.IsEmpty()
}

// Insert inserts text at the given char offset.
func (b *Buffer) Insert(offset CharOffset, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if offset < 0 || offset > b.rope.LenChars() {
		return ErrOffsetOutOfRange
	}
	if text == "" {
		return nil
	}

	b.rope = b.rope.InsertChars(offset, text)
	b.revision = nextRevision()
	return nil
}

// Delete removes the given char range and returns the removed text.
func (b *Buffer) Delete(r Range) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.Start < 0 || r.Start > r.End || r.End > b.rope.LenChars() {
		return "", ErrRangeInvalid
	}
	if r.IsEmpty() {
		return "", nil
	}

	removed := b.rope.SliceChars(r.Start, r.End)
	b.rope = b.rope.DeleteChars(r.Start, r.End)
	b.revision = nextRevision()
	return removed, nil
}

// Replace replaces the given char range with new text and returns the
// removed text.
func (b *Buffer) Replace(r Range, text string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.Start < 0 || r.Start > r.End || r.End > b.rope.LenChars() {
		return "", ErrRangeInvalid
	}

	removed := b.rope.SliceChars(r.Start, r.End)
	b.rope = b.rope.DeleteChars(r.Start, r.End).InsertChars(r.Start, text)
	b.revision = nextRevision()
	return removed, nil
}

// Coordinate conversion. Char<->byte and char<->UTF-16 are tree descents
// over the rope summaries.

// CharToByte converts a char offset to a byte offset.
func (b *Buffer) CharToByte(c CharOffset) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if c < 0 || c > b.rope.LenChars() {
		return 0, ErrOffsetOutOfRange
	}
	return b.rope.CharToByte(c), nil
}

// ByteToChar converts a byte offset to a char offset.
func (b *Buffer) ByteToChar(off int) (CharOffset, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if off < 0 || off > b.rope.LenBytes() {
		return 0, ErrOffsetOutOfRange
	}
	return b.rope.ByteToChar(off), nil
}

// CharToUTF16 converts a char offset to a UTF-16 code unit offset.
func (b *Buffer) CharToUTF16(c CharOffset) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if c < 0 || c > b.rope.LenChars() {
		return 0, ErrOffsetOutOfRange
	}
	return b.rope.CharToUTF16(c), nil
}

// UTF16ToChar converts a UTF-16 code unit offset to a char offset.
func (b *Buffer) UTF16ToChar(u int) (CharOffset, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if u < 0 || u > b.rope.LenUTF16() {
		return 0, ErrOffsetOutOfRange
	}
	return b.rope.UTF16ToChar(u), nil
}

// Revision returns the current revision.
func (b *Buffer) Revision() Revision {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// Snapshot returns an immutable view of the current state. The underlying
// rope is shared; snapshots are safe to hand to other goroutines.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{rope: b.rope, revision: b.revision}
}

// Snapshot is a read-only view of a buffer state.
type Snapshot struct {
	rope     rope.Rope
	revision Revision
}

// Text returns the snapshot's full content.
func (s Snapshot) Text() string { return s.rope.String() }

// LenChars returns the snapshot length in chars.
func (s Snapshot) LenChars() int { return s.rope.LenChars() }

// Revision returns the revision the snapshot was taken at.
func (s Snapshot) Revision() Revision { return s.revision }

// Slice returns the text in the given char range, clamped to the snapshot.
func (s Snapshot) Slice(r Range) string {
	return s.rope.SliceChars(r.Start, r.End)
}
