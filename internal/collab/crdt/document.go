package crdt

import (
	"errors"
	"sync"

	"github.com/dshills/inkwell/internal/collab/store"
)

// SyncState tracks where a document's persisted chain stands.
type SyncState struct {
	// EditRoot is the lineage anchor record, nil before the first push.
	EditRoot *store.StrongRef

	// LastDiff is the most recent diff record, nil when only the root
	// exists.
	LastDiff *store.StrongRef

	// LastSyncedVersion is the version the document had reached at the
	// last confirmed push. It only ever equals a version the document
	// has actually reached.
	LastSyncedVersion VersionVector
}

// Document wraps a CRDT engine with sync state. It is the unit the sync
// protocol and the transport layer operate on.
type Document struct {
	mu     sync.Mutex
	engine Engine
	state  SyncState

	// pending accumulates exported incremental chunks until a
	// confirmed sync clears them. Gossip and chain persistence both
	// drain the engine's incremental export; without this buffer,
	// whichever ran second would lose the delta.
	pending []byte
}

// NewDocument wraps an engine with empty sync state.
func NewDocument(engine Engine) *Document {
	return &Document{engine: engine}
}

// Text returns the current document text.
func (d *Document) Text() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Text()
}

// Splice applies a local edit to the CRDT.
func (d *Document) Splice(pos int, del int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Splice(pos, del, text)
}

// ExportSnapshot serializes the full document state.
func (d *Document) ExportSnapshot() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.ExportSnapshot()
}

// ExportUpdatesSinceSync serializes the changes made since the last
// confirmed sync. Returns ErrNoUpdates when the document is clean.
// Repeated calls before MarkSynced return the accumulated changes, so
// broadcasting and chain persistence can each export independently;
// re-importing overlapping bytes is harmless under CRDT idempotence.
func (d *Document) ExportUpdatesSinceSync() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	chunk, err := d.engine.ExportIncremental()
	switch {
	case err == nil:
		d.pending = append(d.pending, chunk...)
	case errors.Is(err, ErrNoUpdates):
	default:
		return nil, err
	}

	if len(d.pending) == 0 {
		return nil, ErrNoUpdates
	}
	if d.state.LastSyncedVersion != nil && d.engine.Version().Equal(d.state.LastSyncedVersion) {
		return nil, ErrNoUpdates
	}
	out := make([]byte, len(d.pending))
	copy(out, d.pending)
	return out, nil
}

// Import merges remote snapshot or update bytes. Malformed input fails
// atomically with an ImportError.
func (d *Document) Import(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Import(data)
}

// Version returns the current version summary.
func (d *Document) Version() VersionVector {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Version()
}

// EditRoot returns the lineage anchor ref, or nil.
func (d *Document) EditRoot() *store.StrongRef {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyRef(d.state.EditRoot)
}

// SetEditRoot records the lineage anchor after a confirmed push.
func (d *Document) SetEditRoot(ref store.StrongRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.EditRoot = &ref
}

// LastDiff returns the most recent diff ref, or nil.
func (d *Document) LastDiff() *store.StrongRef {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyRef(d.state.LastDiff)
}

// SetLastDiff records the most recent diff after a confirmed push.
func (d *Document) SetLastDiff(ref store.StrongRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.LastDiff = &ref
}

// MarkSynced records that every operation up to the given version has
// been durably pushed. Call only after the push is confirmed, with the
// version captured when the sync cycle started: edits landing during the
// push stay unsynced and are picked up by the next cycle.
func (d *Document) MarkSynced(v VersionVector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.LastSyncedVersion = v
	if d.engine.Version().Equal(v) {
		d.pending = nil
	}
}

// HasUnsyncedChanges reports whether the document holds operations that
// have never been confirmed pushed. True for a document that has never
// synced.
func (d *Document) HasUnsyncedChanges() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.LastSyncedVersion == nil {
		return true
	}
	return !d.engine.Version().Equal(d.state.LastSyncedVersion)
}

// SyncStateSnapshot returns a copy of the current sync state.
func (d *Document) SyncStateSnapshot() SyncState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return SyncState{
		EditRoot:          copyRef(d.state.EditRoot),
		LastDiff:          copyRef(d.state.LastDiff),
		LastSyncedVersion: d.state.LastSyncedVersion,
	}
}

func copyRef(r *store.StrongRef) *store.StrongRef {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}
