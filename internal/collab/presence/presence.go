// Package presence tracks the collaborators of a live session. State
// is updated from gossip join/leave/cursor traffic and exposed only as
// immutable snapshot values, never as a shared map.
package presence

import (
	"hash/fnv"
	"sort"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/inkwell/internal/collab/transport"
	"github.com/dshills/inkwell/internal/collab/wire"
)

// CollaboratorInfo describes one known session peer.
type CollaboratorInfo struct {
	NodeID      transport.NodeID
	Identity    string
	DisplayName string
	Color       string
	Cursor      *int
	Selection   *wire.Span
}

// Snapshot is an immutable view of all known peers. It is the only
// presence state that crosses the worker/UI boundary.
type Snapshot struct {
	Collaborators []CollaboratorInfo
	PeerCount     int
}

// Tracker accumulates presence state for one session.
type Tracker struct {
	mu    sync.Mutex
	peers map[transport.NodeID]*CollaboratorInfo
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{peers: make(map[transport.NodeID]*CollaboratorInfo)}
}

// HandleJoin records a peer announcing itself.
func (t *Tracker) HandleJoin(peer transport.NodeID, msg wire.Join) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info := t.peers[peer]
	if info == nil {
		info = &CollaboratorInfo{NodeID: peer}
		t.peers[peer] = info
	}
	info.Identity = msg.Identity
	info.DisplayName = msg.DisplayName
	info.Color = ColorFor(msg.Identity)
}

// HandleLeave removes a peer.
func (t *Tracker) HandleLeave(peer transport.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, peer)
}

// HandleCursor records a peer's caret and selection. A cursor from an
// unannounced peer still registers it, with identity fields filled in
// by a later join.
func (t *Tracker) HandleCursor(peer transport.NodeID, msg wire.Cursor) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info := t.peers[peer]
	if info == nil {
		info = &CollaboratorInfo{NodeID: peer, Color: msg.Color}
		t.peers[peer] = info
	}
	pos := msg.Position
	info.Cursor = &pos
	if msg.Selection != nil {
		sel := *msg.Selection
		info.Selection = &sel
	} else {
		info.Selection = nil
	}
	if msg.Color != "" {
		info.Color = msg.Color
	}
}

// Snapshot returns an immutable copy of the current presence state,
// with collaborators ordered by node id.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]CollaboratorInfo, 0, len(t.peers))
	for _, info := range t.peers {
		copied := *info
		if info.Cursor != nil {
			cursor := *info.Cursor
			copied.Cursor = &cursor
		}
		if info.Selection != nil {
			sel := *info.Selection
			copied.Selection = &sel
		}
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })

	return Snapshot{Collaborators: out, PeerCount: len(out)}
}

// ColorFor assigns a stable display color to an identity. The hue is
// derived from a hash of the identity so every peer computes the same
// color for the same collaborator.
func ColorFor(identity string) string {
	h := fnv.New32a()
	h.Write([]byte(identity))
	hue := float64(h.Sum32()%360) + 0.5
	return colorful.Hsv(hue, 0.62, 0.85).Hex()
}
