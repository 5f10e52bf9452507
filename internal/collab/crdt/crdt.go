// Package crdt wraps an external CRDT engine with the sync bookkeeping
// the collaborative core needs.
//
// The merge algorithm itself is an already-solved dependency: the engine
// interface exposes opaque snapshot/update bytes and a version summary,
// and the core never parses or mutates those bytes. Merge is commutative,
// associative and idempotent, so importing the same bytes twice or out of
// order must not corrupt state.
package crdt

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoUpdates is returned by exports when nothing changed since the
// last export.
var ErrNoUpdates = errors.New("no updates since last export")

// ImportError reports malformed or foreign update bytes. The engine must
// apply imports atomically: a failed import leaves the document unchanged.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("crdt import: %v", e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// VersionVector summarizes which operations a document has incorporated.
// It is an opaque, sorted list of head identifiers; the core compares
// vectors for equality only.
type VersionVector []string

// NewVersionVector normalizes a list of head identifiers.
func NewVersionVector(heads []string) VersionVector {
	out := make(VersionVector, len(heads))
	copy(out, heads)
	sort.Strings(out)
	return out
}

// Equal reports whether two vectors describe the same document state.
func (v VersionVector) Equal(other VersionVector) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if v[i] != other[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether the vector is unset.
func (v VersionVector) IsZero() bool { return len(v) == 0 }

// String returns a short human-readable form.
func (v VersionVector) String() string {
	if len(v) == 0 {
		return "∅"
	}
	s := v[0]
	if len(s) > 8 {
		s = s[:8]
	}
	if len(v) == 1 {
		return s
	}
	return fmt.Sprintf("%s+%d", s, len(v)-1)
}

// Engine is the external CRDT library boundary.
type Engine interface {
	// Text returns the current document text.
	Text() (string, error)

	// Splice applies a local edit: delete chars at pos, then insert
	// text there. Offsets are Unicode scalar values.
	Splice(pos int, del int, text string) error

	// ExportSnapshot serializes the full document state.
	ExportSnapshot() ([]byte, error)

	// ExportIncremental serializes the changes since the previous
	// export (snapshot or incremental). Returns ErrNoUpdates when
	// nothing changed.
	ExportIncremental() ([]byte, error)

	// Import merges snapshot or update bytes into the document.
	// Malformed input returns an ImportError and leaves the document
	// unchanged.
	Import(data []byte) error

	// Version returns the current version summary.
	Version() VersionVector
}
