package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/inkwell/internal/collab/crdt"
	"github.com/dshills/inkwell/internal/collab/store"
	"github.com/dshills/inkwell/internal/diag"
)

// Errors returned by the syncer.
var (
	// ErrNoEditRoot is returned when a diff push is attempted on a
	// document with no anchored lineage.
	ErrNoEditRoot = errors.New("document has no edit root")

	// ErrDivergentHeads is returned when a draft carries more than one
	// live edit root. Use FindAllEditRoots to enumerate them.
	ErrDivergentHeads = errors.New("draft has divergent edit roots")
)

// SyncError wraps a store or network failure during a sync operation.
// It is retryable: local edits stay unsynced until the next successful
// cycle and are never lost.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// IsRetryable reports whether a sync failure should be retried on the
// next cycle. Authentication failures suspend syncing instead.
func IsRetryable(err error) bool {
	if errors.Is(err, store.ErrNotAuthenticated) {
		return false
	}
	var syncErr *SyncError
	return errors.As(err, &syncErr)
}

// Syncer pushes and walks root/diff chains against a record store.
type Syncer struct {
	store store.Store
	log   *diag.Logger
	now   func() time.Time
}

// Option configures a Syncer.
type Option func(*Syncer)

// withClock overrides the time source. Used by tests.
func withClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// NewSyncer creates a syncer over the given store.
func NewSyncer(st store.Store, log *diag.Logger, opts ...Option) *Syncer {
	if log == nil {
		log = diag.NullLogger
	}
	s := &Syncer{
		store: st,
		log:   log.WithComponent("sync"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEditRoot pushes the document's full snapshot as a new lineage
// anchor for the draft. The document is marked synced at the version it
// held when the snapshot was taken, and only after the push confirms.
func (s *Syncer) CreateEditRoot(ctx context.Context, doc *crdt.Document, draft store.Address) (store.StrongRef, error) {
	version := doc.Version()
	snapshot, err := doc.ExportSnapshot()
	if err != nil {
		return store.StrongRef{}, fmt.Errorf("export snapshot: %w", err)
	}

	value, err := json.Marshal(store.EditRoot{
		Draft:     draft,
		Snapshot:  snapshot,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return store.StrongRef{}, fmt.Errorf("encode edit root: %w", err)
	}

	ref, err := s.store.Put(ctx, store.CollectionEditRoot, value)
	if err != nil {
		return store.StrongRef{}, s.wrapStoreErr("create edit root", err)
	}

	doc.SetEditRoot(ref)
	doc.MarkSynced(version)
	s.log.Info("created edit root %s for draft %s", ref, draft)
	return ref, nil
}

// PushDiff exports the updates made since the last confirmed sync and
// pushes them as a diff chained to the previous diff or root. Returns a
// zero ref with no error when there is nothing to push.
func (s *Syncer) PushDiff(ctx context.Context, doc *crdt.Document) (store.StrongRef, error) {
	root := doc.EditRoot()
	if root == nil {
		return store.StrongRef{}, ErrNoEditRoot
	}

	version := doc.Version()
	delta, err := doc.ExportUpdatesSinceSync()
	if errors.Is(err, crdt.ErrNoUpdates) {
		return store.StrongRef{}, nil
	}
	if err != nil {
		return store.StrongRef{}, fmt.Errorf("export updates: %w", err)
	}

	prev := *root
	if last := doc.LastDiff(); last != nil {
		prev = *last
	}

	value, err := json.Marshal(store.EditDiff{
		Root:      *root,
		Prev:      prev,
		Delta:     delta,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return store.StrongRef{}, fmt.Errorf("encode edit diff: %w", err)
	}

	ref, err := s.store.Put(ctx, store.CollectionEditDiff, value)
	if err != nil {
		return store.StrongRef{}, s.wrapStoreErr("push diff", err)
	}

	doc.SetLastDiff(ref)
	doc.MarkSynced(version)
	s.log.Debug("pushed diff %s (prev %s)", ref, prev)
	return ref, nil
}

// SyncCycle performs one full sync step for the document: anchoring a
// root on first save, pushing a diff when local changes exist, and
// doing nothing when the document is already in sync.
func (s *Syncer) SyncCycle(ctx context.Context, doc *crdt.Document, draft store.Address) error {
	if doc.EditRoot() == nil {
		_, err := s.CreateEditRoot(ctx, doc, draft)
		return err
	}
	if !doc.HasUnsyncedChanges() {
		return nil
	}
	_, err := s.PushDiff(ctx, doc)
	return err
}

// FindAllEditRoots enumerates every live edit root for a draft, oldest
// first. More than one entry means the draft has diverged.
func (s *Syncer) FindAllEditRoots(ctx context.Context, draft store.Address) ([]store.Record, error) {
	records, err := s.store.List(ctx, store.CollectionEditRoot, store.Filter{Draft: draft})
	if err != nil {
		return nil, s.wrapStoreErr("list edit roots", err)
	}
	return records, nil
}

// FindEditRootForDraft returns the draft's single edit root. It fails
// with store.ErrNotFound when no lineage exists and ErrDivergentHeads
// when more than one does.
func (s *Syncer) FindEditRootForDraft(ctx context.Context, draft store.Address) (store.Record, error) {
	roots, err := s.FindAllEditRoots(ctx, draft)
	if err != nil {
		return store.Record{}, err
	}
	switch len(roots) {
	case 0:
		return store.Record{}, store.ErrNotFound
	case 1:
		return roots[0], nil
	default:
		s.log.Warn("draft %s has %d edit roots", draft, len(roots))
		return store.Record{}, ErrDivergentHeads
	}
}

// FindDiffsForRoot returns every diff belonging to a root, parents
// before children. Peers pushing independently can chain more than one
// diff to the same prev link; all branches belong to the lineage, so
// the walk follows each of them.
func (s *Syncer) FindDiffsForRoot(ctx context.Context, root store.StrongRef) ([]store.Record, error) {
	records, err := s.store.List(ctx, store.CollectionEditDiff, store.Filter{})
	if err != nil {
		return nil, s.wrapStoreErr("list edit diffs", err)
	}

	byPrev := make(map[store.Address][]store.Record)
	for _, rec := range records {
		var diff store.EditDiff
		if err := json.Unmarshal(rec.Value, &diff); err != nil {
			s.log.Warn("skipping undecodable diff %s: %v", rec.Ref, err)
			continue
		}
		if diff.Root != root {
			continue
		}
		byPrev[diff.Prev.Address] = append(byPrev[diff.Prev.Address], rec)
	}

	var chain []store.Record
	frontier := []store.Address{root.Address}
	for len(frontier) > 0 {
		cursor := frontier[0]
		frontier = frontier[1:]
		for _, next := range byPrev[cursor] {
			chain = append(chain, next)
			frontier = append(frontier, next.Ref.Address)
		}
	}
	return chain, nil
}

// LoadFromChain reconstructs a document from the draft's persisted
// lineage: the root snapshot imported first, then every diff in the
// lineage, parents before children. Forked branches merge during
// import. The returned document is marked synced at its loaded version.
func (s *Syncer) LoadFromChain(ctx context.Context, draft store.Address) (*crdt.Document, error) {
	rootRec, err := s.FindEditRootForDraft(ctx, draft)
	if err != nil {
		return nil, err
	}

	var root store.EditRoot
	if err := json.Unmarshal(rootRec.Value, &root); err != nil {
		return nil, fmt.Errorf("decode edit root %s: %w", rootRec.Ref, err)
	}

	engine, err := crdt.LoadAutomergeEngine(root.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("load root snapshot: %w", err)
	}
	doc := crdt.NewDocument(engine)
	doc.SetEditRoot(rootRec.Ref)

	diffs, err := s.FindDiffsForRoot(ctx, rootRec.Ref)
	if err != nil {
		return nil, err
	}
	for _, rec := range diffs {
		var diff store.EditDiff
		if err := json.Unmarshal(rec.Value, &diff); err != nil {
			return nil, fmt.Errorf("decode edit diff %s: %w", rec.Ref, err)
		}
		if err := doc.Import(diff.Delta); err != nil {
			return nil, fmt.Errorf("import diff %s: %w", rec.Ref, err)
		}
		doc.SetLastDiff(rec.Ref)
	}

	doc.MarkSynced(doc.Version())
	s.log.Info("loaded draft %s from root %s with %d diffs", draft, rootRec.Ref, len(diffs))
	return doc, nil
}

// wrapStoreErr classifies a store failure. Authentication failures pass
// through unchanged so callers can suspend syncing; everything else is
// a retryable SyncError.
func (s *Syncer) wrapStoreErr(op string, err error) error {
	if errors.Is(err, store.ErrNotAuthenticated) {
		return fmt.Errorf("sync %s: %w", op, err)
	}
	return &SyncError{Op: op, Err: err}
}
