package transport

import "context"

// NodeID identifies one peer: the lowercase hex of its public key.
type NodeID string

// RawEventType classifies an event from the gossip layer.
type RawEventType int

const (
	// RawJoined confirms the local subscription is live.
	RawJoined RawEventType = iota
	// RawPeerJoined announces a remote peer on the topic.
	RawPeerJoined
	// RawPeerLeft announces a remote peer leaving the topic.
	RawPeerLeft
	// RawMessage carries one broadcast payload.
	RawMessage
	// RawLagged signals dropped messages under load.
	RawLagged
)

// RawEvent is one event from a gossip subscription. Payload is set
// only for RawMessage; Peer is empty for RawJoined and RawLagged.
type RawEvent struct {
	Type    RawEventType
	Peer    NodeID
	Payload []byte
}

// Conn is one live topic subscription.
type Conn interface {
	// Broadcast sends a payload to all current topic peers. Delivery
	// is at-most-once; there is no acknowledgement.
	Broadcast(ctx context.Context, payload []byte) error

	// Events returns the subscription's event stream. The channel is
	// closed when the subscription ends.
	Events() <-chan RawEvent

	// Close ends the subscription and announces the departure.
	Close() error
}

// Gossip is the pluggable gossip backend a node hosts. Implementations
// are the in-memory hub (tests, single process) and the websocket
// relay client.
type Gossip interface {
	Subscribe(ctx context.Context, self NodeID, topic TopicID, bootstrap []string) (Conn, error)
}
