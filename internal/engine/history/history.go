package history

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dshills/inkwell/internal/engine/buffer"
)

// Errors returned by history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// EditRecord describes one applied edit in reversible form.
type EditRecord struct {
	// Offset is the char offset the edit was applied at.
	Offset buffer.CharOffset

	// OldText is the text that was removed (empty for a pure insert).
	OldText string

	// NewText is the text that was added (empty for a pure delete).
	NewText string

	// CursorBefore and CursorAfter are the cursor positions around the
	// edit, restored by undo and redo respectively.
	CursorBefore buffer.CharOffset
	CursorAfter  buffer.CharOffset
}

func (r EditRecord) isInsert() bool { return r.OldText == "" && r.NewText != "" }
func (r EditRecord) isDelete() bool { return r.OldText != "" && r.NewText == "" }

// step is one undo unit: one or more coalesced records in application order.
type step struct {
	records []EditRecord
	at      time.Time
	chars   int
}

// Manager records reversible edits against a buffer.
type Manager struct {
	mu     sync.Mutex
	target *buffer.Buffer

	undoStack []*step
	redoStack []*step

	maxEntries     int
	coalesceWindow time.Duration
	coalesceChars  int

	clock func() time.Time
}

// NewManager creates an undo manager for the given buffer.
func NewManager(target *buffer.Buffer, opts ...Option) *Manager {
	m := &Manager{
		target:         target,
		maxEntries:     1000,
		coalesceWindow: time.Second,
		coalesceChars:  64,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record adds an applied edit to the undo stack and clears the redo stack.
func (m *Manager) Record(rec EditRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.redoStack = nil

	now := m.clock()
	if last := m.lastStepLocked(); last != nil && m.canCoalesce(last, rec, now) {
		last.records = append(last.records, rec)
		last.at = now
		last.chars += charLen(rec.NewText) + charLen(rec.OldText)
		return
	}

	m.undoStack = append(m.undoStack, &step{
		records: []EditRecord{rec},
		at:      now,
		chars:   charLen(rec.NewText) + charLen(rec.OldText),
	})

	if len(m.undoStack) > m.maxEntries {
		excess := len(m.undoStack) - m.maxEntries
		m.undoStack = m.undoStack[excess:]
	}
}

func (m *Manager) lastStepLocked() *step {
	if len(m.undoStack) == 0 {
		return nil
	}
	return m.undoStack[len(m.undoStack)-1]
}

// canCoalesce reports whether rec extends the last step: same direction,
// adjacent offset, inside the time and size window, and not spanning a
// line break.
func (m *Manager) canCoalesce(last *step, rec EditRecord, now time.Time) bool {
	if now.Sub(last.at) > m.coalesceWindow {
		return false
	}
	if last.chars+charLen(rec.NewText)+charLen(rec.OldText) > m.coalesceChars {
		return false
	}
	if strings.ContainsRune(rec.NewText, '\n') || strings.ContainsRune(rec.OldText, '\n') {
		return false
	}

	prev := last.records[len(last.records)-1]
	switch {
	case prev.isInsert() && rec.isInsert():
		// Typing forward: the new insert starts where the previous ended.
		return rec.Offset == prev.Offset+charLen(prev.NewText)
	case prev.isDelete() && rec.isDelete():
		// Backspacing: the new delete ends where the previous started,
		// or forward-delete repeats at the same offset.
		return rec.Offset+charLen(rec.OldText) == prev.Offset || rec.Offset == prev.Offset
	default:
		return false
	}
}

// Undo reverses the most recent step and returns the cursor position to
// restore.
func (m *Manager) Undo() (buffer.CharOffset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.undoStack) == 0 {
		return 0, ErrNothingToUndo
	}
	s := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]

	// Apply in reverse order so offsets stay valid.
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		r := buffer.Range{Start: rec.Offset, End: rec.Offset + charLen(rec.NewText)}
		if _, err := m.target.Replace(r, rec.OldText); err != nil {
			// Restore and surface; the buffer was not changed by the
			// failed record.
			m.undoStack = append(m.undoStack, s)
			return 0, err
		}
	}

	m.redoStack = append(m.redoStack, s)
	return s.records[0].CursorBefore, nil
}

// Redo re-applies the most recently undone step and returns the cursor
// position to restore.
func (m *Manager) Redo() (buffer.CharOffset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.redoStack) == 0 {
		return 0, ErrNothingToRedo
	}
	s := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]

	for _, rec := range s.records {
		r := buffer.Range{Start: rec.Offset, End: rec.Offset + charLen(rec.OldText)}
		if _, err := m.target.Replace(r, rec.NewText); err != nil {
			m.redoStack = append(m.redoStack, s)
			return 0, err
		}
	}

	m.undoStack = append(m.undoStack, s)
	return s.records[len(s.records)-1].CursorAfter, nil
}

// CanUndo returns true if undo is available.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redoStack) > 0
}

// UndoCount returns the number of undo steps available.
func (m *Manager) UndoCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undoStack)
}

// RedoCount returns the number of redo steps available.
func (m *Manager) RedoCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redoStack)
}

// Clear removes all undo/redo history.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undoStack = nil
	m.redoStack = nil
}

func charLen(s string) int { return utf8.RuneCountInString(s) }

// Option configures a Manager.
type Option func(*Manager)

// WithMaxEntries sets the maximum number of undo steps retained.
func WithMaxEntries(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithCoalesceWindow sets the time window for coalescing edits.
func WithCoalesceWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.coalesceWindow = d
		}
	}
}

// WithCoalesceChars sets the size window for coalescing edits.
func WithCoalesceChars(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.coalesceChars = n
		}
	}
}

// withClock overrides the time source in tests.
func withClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}
