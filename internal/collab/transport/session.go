package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/inkwell/internal/collab/wire"
	"github.com/dshills/inkwell/internal/diag"
)

// EventType classifies a session event.
type EventType int

const (
	// EventJoined confirms the local subscription is live.
	EventJoined EventType = iota
	// EventPeerJoined announces a remote peer on the topic.
	EventPeerJoined
	// EventPeerLeft announces a remote peer leaving the topic.
	EventPeerLeft
	// EventMessage carries one decoded gossip message.
	EventMessage
	// EventLagged signals that messages were dropped under load.
	EventLagged
)

// Event is one decoded session event. Message is set only for
// EventMessage.
type Event struct {
	Type    EventType
	Peer    NodeID
	Message wire.Message
}

// Session is a live subscription to one resource's gossip topic.
type Session struct {
	topic  TopicID
	conn   Conn
	events chan Event
	log    *diag.Logger

	closeOnce sync.Once
	closeErr  error
}

// Join subscribes the node to a topic and starts the receive loop.
// Bootstrap addresses seed peer discovery; an empty list is valid for
// the first peer on a topic.
func Join(ctx context.Context, node *Node, topic TopicID, bootstrap []string) (*Session, error) {
	conn, err := node.gossip.Subscribe(ctx, node.id, topic, bootstrap)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe topic %s: %v", ErrBindFailed, topic, err)
	}

	s := &Session{
		topic:  topic,
		conn:   conn,
		events: make(chan Event, 64),
		log:    node.log.WithField("topic", topic.String()[:8]),
	}
	go s.receiveLoop()
	return s, nil
}

// Broadcast encodes a message and sends it to all current topic peers.
func (s *Session) Broadcast(ctx context.Context, msg wire.Message) error {
	payload, err := wire.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	return s.conn.Broadcast(ctx, payload)
}

// Events returns the session's event stream. The channel is closed
// when the session ends.
func (s *Session) Events() <-chan Event { return s.events }

// Topic returns the topic this session is subscribed to.
func (s *Session) Topic() TopicID { return s.topic }

// Close ends the subscription. The event channel closes once the
// receive loop drains.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// receiveLoop turns raw gossip events into decoded session events. A
// malformed payload from one peer is logged and skipped; a lag signal
// is logged and forwarded. Neither stops the loop.
func (s *Session) receiveLoop() {
	defer close(s.events)

	for raw := range s.conn.Events() {
		switch raw.Type {
		case RawJoined:
			s.events <- Event{Type: EventJoined}
		case RawPeerJoined:
			s.events <- Event{Type: EventPeerJoined, Peer: raw.Peer}
		case RawPeerLeft:
			s.events <- Event{Type: EventPeerLeft, Peer: raw.Peer}
		case RawLagged:
			s.log.Warn("gossip lagged, messages dropped")
			s.events <- Event{Type: EventLagged}
		case RawMessage:
			msg, err := wire.Decode(raw.Payload)
			if err != nil {
				s.log.Warn("dropping malformed payload from %s: %v", raw.Peer, err)
				continue
			}
			s.events <- Event{Type: EventMessage, Peer: raw.Peer, Message: msg}
		}
	}
}
