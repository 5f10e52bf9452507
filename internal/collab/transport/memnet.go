package transport

import (
	"context"
	"errors"
	"sync"
)

// connBuffer is the per-subscription event buffer. Overflow drops the
// oldest event and surfaces a lag signal, matching gossip's
// at-most-once delivery.
const connBuffer = 256

// MemHub is an in-process gossip backend. Every subscription on the
// same hub shares the same topic space; broadcasts reach all other
// subscribers of the topic. It backs tests and single-process use.
type MemHub struct {
	mu     sync.Mutex
	topics map[TopicID][]*memConn
}

// NewMemHub creates an empty hub.
func NewMemHub() *MemHub {
	return &MemHub{topics: make(map[TopicID][]*memConn)}
}

// Subscribe joins a topic. Bootstrap addresses are ignored; the hub
// has global knowledge of its peers.
func (h *MemHub) Subscribe(ctx context.Context, self NodeID, topic TopicID, bootstrap []string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conn := &memConn{
		hub:    h,
		topic:  topic,
		id:     self,
		events: make(chan RawEvent, connBuffer),
	}

	for _, peer := range h.topics[topic] {
		peer.deliver(RawEvent{Type: RawPeerJoined, Peer: self})
		conn.deliver(RawEvent{Type: RawPeerJoined, Peer: peer.id})
	}
	h.topics[topic] = append(h.topics[topic], conn)

	conn.deliver(RawEvent{Type: RawJoined})
	return conn, nil
}

type memConn struct {
	hub    *MemHub
	topic  TopicID
	id     NodeID
	events chan RawEvent
	closed bool
}

// Broadcast delivers the payload to every other subscriber of the
// topic. Slow subscribers lose oldest events rather than blocking the
// sender.
func (c *memConn) Broadcast(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()

	if c.closed {
		return errors.New("broadcast on closed subscription")
	}
	for _, peer := range c.hub.topics[c.topic] {
		if peer == c {
			continue
		}
		copied := make([]byte, len(payload))
		copy(copied, payload)
		peer.deliver(RawEvent{Type: RawMessage, Peer: c.id, Payload: copied})
	}
	return nil
}

func (c *memConn) Events() <-chan RawEvent { return c.events }

// Close leaves the topic and announces the departure to remaining
// peers.
func (c *memConn) Close() error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	subs := c.hub.topics[c.topic]
	for i, peer := range subs {
		if peer == c {
			c.hub.topics[c.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	for _, peer := range c.hub.topics[c.topic] {
		peer.deliver(RawEvent{Type: RawPeerLeft, Peer: c.id})
	}

	close(c.events)
	return nil
}

// deliver queues an event without blocking. Callers hold the hub lock,
// which also serializes deliver against Close.
func (c *memConn) deliver(ev RawEvent) {
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		// Buffer full: shed the two oldest events to make room for a
		// lag signal followed by the incoming event.
		for i := 0; i < 2; i++ {
			select {
			case <-c.events:
			default:
			}
		}
		select {
		case c.events <- RawEvent{Type: RawLagged}:
		default:
		}
		select {
		case c.events <- ev:
		default:
		}
	}
}
