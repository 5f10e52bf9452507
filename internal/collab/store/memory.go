package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process record store used by tests and local
// sessions. Records are immutable once put; List preserves insertion
// order.
type MemoryStore struct {
	mu          sync.RWMutex
	records     map[Address][]byte
	collections map[string][]StrongRef
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     make(map[Address][]byte),
		collections: make(map[string][]StrongRef),
	}
}

// Put persists a value and returns its ref.
func (s *MemoryStore) Put(ctx context.Context, collection string, value []byte) (StrongRef, error) {
	if err := ctx.Err(); err != nil {
		return StrongRef{}, err
	}

	ref := StrongRef{
		Address: Address("inkwell://record/" + uuid.NewString()),
		Hash:    HashValue(value),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.records[ref.Address] = stored
	s.collections[collection] = append(s.collections[collection], ref)
	return ref, nil
}

// Get fetches a record's value by address.
func (s *MemoryStore) Get(ctx context.Context, addr Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.records[addr]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// List returns the records of a collection in insertion order. The Draft
// filter matches edit root and edit diff record shapes.
func (s *MemoryStore) List(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, ref := range s.collections[collection] {
		value := s.records[ref.Address]
		if filter.Draft != "" && !matchesDraft(collection, value, filter.Draft, s) {
			continue
		}
		copied := make([]byte, len(value))
		copy(copied, value)
		out = append(out, Record{Ref: ref, Value: copied})
	}
	return out, nil
}

// matchesDraft decodes just enough of a record to apply the draft filter.
// Diffs reference their draft indirectly through the root record.
func matchesDraft(collection string, value []byte, draft Address, s *MemoryStore) bool {
	switch collection {
	case CollectionEditRoot:
		var root EditRoot
		if err := json.Unmarshal(value, &root); err != nil {
			return false
		}
		return root.Draft == draft
	case CollectionEditDiff:
		var diff EditDiff
		if err := json.Unmarshal(value, &diff); err != nil {
			return false
		}
		rootValue, ok := s.records[diff.Root.Address]
		if !ok {
			return false
		}
		var root EditRoot
		if err := json.Unmarshal(rootValue, &root); err != nil {
			return false
		}
		return root.Draft == draft
	default:
		return false
	}
}
