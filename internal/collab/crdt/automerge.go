package crdt

import (
	"fmt"
	"sync"

	"github.com/automerge/automerge-go"
)

// bodyKey is the root map key holding the draft text.
const bodyKey = "body"

// AutomergeEngine implements Engine over automerge. It is the only place
// in the repository that touches the CRDT library directly.
type AutomergeEngine struct {
	mu  sync.Mutex
	doc *automerge.Doc
}

// NewAutomergeEngine creates an engine with the given initial text.
func NewAutomergeEngine(initial string) (*AutomergeEngine, error) {
	doc := automerge.New()
	e := &AutomergeEngine{doc: doc}
	if initial != "" {
		if err := e.body().Insert(0, initial); err != nil {
			return nil, fmt.Errorf("initializing document body: %w", err)
		}
	}
	return e, nil
}

// LoadAutomergeEngine restores an engine from snapshot bytes.
func LoadAutomergeEngine(snapshot []byte) (*AutomergeEngine, error) {
	doc, err := automerge.Load(snapshot)
	if err != nil {
		return nil, &ImportError{Err: err}
	}
	return &AutomergeEngine{doc: doc}, nil
}

func (e *AutomergeEngine) body() *automerge.Text {
	return e.doc.Path(bodyKey).Text()
}

// Text returns the current document text.
func (e *AutomergeEngine) Text() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.body().Get()
}

// Splice applies a local edit.
func (e *AutomergeEngine) Splice(pos int, del int, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	body := e.body()
	if del > 0 {
		if err := body.Delete(pos, del); err != nil {
			return fmt.Errorf("deleting %d chars at %d: %w", del, pos, err)
		}
	}
	if text != "" {
		if err := body.Insert(pos, text); err != nil {
			return fmt.Errorf("inserting at %d: %w", pos, err)
		}
	}
	return nil
}

// ExportSnapshot serializes the full document state.
func (e *AutomergeEngine) ExportSnapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Save(), nil
}

// ExportIncremental serializes the changes since the previous export.
func (e *AutomergeEngine) ExportIncremental() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data := e.doc.SaveIncremental()
	if len(data) == 0 {
		return nil, ErrNoUpdates
	}
	return data, nil
}

// Import merges snapshot or update bytes. automerge applies changes
// transactionally, so malformed input leaves the document unchanged.
func (e *AutomergeEngine) Import(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.doc.LoadIncremental(data); err != nil {
		return &ImportError{Err: err}
	}
	return nil
}

// Version returns the document heads as an opaque version vector.
func (e *AutomergeEngine) Version() VersionVector {
	e.mu.Lock()
	defer e.mu.Unlock()

	heads := e.doc.Heads()
	ids := make([]string, len(heads))
	for i, h := range heads {
		ids[i] = h.String()
	}
	return NewVersionVector(ids)
}
