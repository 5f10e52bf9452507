// Package store defines the boundary to the external content-addressed
// record network.
//
// The editing core needs only three operations: put a value into a
// collection, get a record by address, and list a collection with a
// filter. Two record shapes are pushed: an edit root (full snapshot
// anchoring a lineage) and an edit diff (incremental update chained to
// its predecessor). The network's replication and consistency model is
// out of scope; an in-memory implementation backs tests and local use.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Errors returned by record stores.
var (
	ErrNotFound         = errors.New("record not found")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Collections for the records the editing core pushes.
const (
	CollectionEditRoot = "sh.inkwell.draft.editRoot"
	CollectionEditDiff = "sh.inkwell.draft.editDiff"
	CollectionPresence = "sh.inkwell.session.presence"
)

// Address locates one record in the network.
type Address string

// StrongRef identifies one immutable persisted record: its address plus
// the hash of its content.
type StrongRef struct {
	Address Address `json:"address"`
	Hash    string  `json:"hash"`
}

// IsZero reports whether the ref is unset.
func (r StrongRef) IsZero() bool { return r.Address == "" }

// String returns a short human-readable form.
func (r StrongRef) String() string {
	h := r.Hash
	if len(h) > 8 {
		h = h[:8]
	}
	return fmt.Sprintf("%s@%s", r.Address, h)
}

// HashValue computes the content hash a StrongRef carries.
func HashValue(value []byte) string {
	sum := sha256.Sum256(value)
	return hex.EncodeToString(sum[:])
}

// Record is one listed record with its ref and raw value.
type Record struct {
	Ref   StrongRef
	Value []byte
}

// Filter narrows a List call. Zero fields match everything.
type Filter struct {
	// Draft restricts results to records referencing the given draft.
	Draft Address
}

// Store is the record store boundary.
type Store interface {
	// Put persists a value into a collection and returns its ref.
	Put(ctx context.Context, collection string, value []byte) (StrongRef, error)

	// Get fetches a record's raw value by address.
	Get(ctx context.Context, addr Address) ([]byte, error)

	// List returns the records of a collection matching the filter, in
	// insertion order.
	List(ctx context.Context, collection string, filter Filter) ([]Record, error)
}

// EditRoot is the persisted shape of a lineage anchor: a full document
// snapshot plus the draft it belongs to.
type EditRoot struct {
	Draft     Address   `json:"draft"`
	Snapshot  []byte    `json:"snapshot"`
	CreatedAt time.Time `json:"createdAt"`
}

// EditDiff is the persisted shape of one incremental update, chained to
// the previous diff or root.
type EditDiff struct {
	Root      StrongRef `json:"root"`
	Prev      StrongRef `json:"prev"`
	Delta     []byte    `json:"delta"`
	CreatedAt time.Time `json:"createdAt"`
}
