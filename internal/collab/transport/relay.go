package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dshills/inkwell/internal/diag"
)

// Relay is a gossip backend that reaches peers through a websocket
// relay server instead of direct connections. Peers behind NAT use it
// as their transport; the relay fans broadcasts out per topic.
type Relay struct {
	url string
	log *diag.Logger
}

// NewRelay creates a relay client for the given websocket URL.
func NewRelay(url string, log *diag.Logger) *Relay {
	if log == nil {
		log = diag.NullLogger
	}
	return &Relay{url: url, log: log.WithComponent("relay")}
}

// relayFrame is the relay server's framing. Payload rides as base64
// under encoding/json's []byte rules.
type relayFrame struct {
	Type      string   `json:"type"`
	Topic     string   `json:"topic,omitempty"`
	Node      string   `json:"node,omitempty"`
	From      string   `json:"from,omitempty"`
	Payload   []byte   `json:"payload,omitempty"`
	Bootstrap []string `json:"bootstrap,omitempty"`
}

const (
	frameSubscribe  = "subscribe"
	frameJoined     = "joined"
	framePeerJoined = "peer_joined"
	framePeerLeft   = "peer_left"
	frameMessage    = "message"
	frameLagged     = "lagged"
)

// Subscribe dials the relay, announces the topic subscription, and
// starts the read loop.
func (r *Relay) Subscribe(ctx context.Context, self NodeID, topic TopicID, bootstrap []string) (Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", r.url, err)
	}

	sub := relayFrame{
		Type:      frameSubscribe,
		Topic:     topic.String(),
		Node:      string(self),
		Bootstrap: bootstrap,
	}
	if err := ws.WriteJSON(sub); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("subscribe on relay: %w", err)
	}

	conn := &relayConn{
		ws:     ws,
		events: make(chan RawEvent, connBuffer),
		log:    r.log.WithField("topic", topic.String()[:8]),
	}
	go conn.readLoop()
	return conn, nil
}

type relayConn struct {
	ws     *websocket.Conn
	events chan RawEvent
	log    *diag.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *relayConn) Broadcast(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(relayFrame{Type: frameMessage, Payload: payload})
}

func (c *relayConn) Events() <-chan RawEvent { return c.events }

func (c *relayConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

// readLoop converts relay frames into raw events until the socket
// closes. Unknown frame types are logged and skipped.
func (c *relayConn) readLoop() {
	defer close(c.events)

	for {
		var frame relayFrame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("relay read ended: %v", err)
			}
			return
		}

		switch frame.Type {
		case frameJoined:
			c.events <- RawEvent{Type: RawJoined}
		case framePeerJoined:
			c.events <- RawEvent{Type: RawPeerJoined, Peer: NodeID(frame.From)}
		case framePeerLeft:
			c.events <- RawEvent{Type: RawPeerLeft, Peer: NodeID(frame.From)}
		case frameLagged:
			c.events <- RawEvent{Type: RawLagged}
		case frameMessage:
			c.events <- RawEvent{Type: RawMessage, Peer: NodeID(frame.From), Payload: frame.Payload}
		default:
			c.log.Debug("ignoring relay frame type %q", frame.Type)
		}
	}
}
