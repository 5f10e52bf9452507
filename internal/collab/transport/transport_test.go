package transport

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/inkwell/internal/collab/wire"
	"github.com/dshills/inkwell/internal/diag"
)

func TestTopicDerivationIsDeterministic(t *testing.T) {
	addr := "inkwell://draft/abc123"

	a := TopicForAddress(addr)
	b := TopicForAddress(addr)
	if a != b {
		t.Error("same address produced different topics")
	}
	if TopicForAddress("inkwell://draft/other") == a {
		t.Error("different addresses produced the same topic")
	}
	if len(a.String()) != 64 {
		t.Errorf("topic hex = %q, want 64 chars", a.String())
	}
}

func TestLoadOrGenerateKeyPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")

	first, err := LoadOrGenerateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := LoadOrGenerateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Equal(second) {
		t.Error("reloading the key file produced a different keypair")
	}
}

func TestLoadOrGenerateKeyRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")
	if err := os.WriteFile(path, []byte("not hex at all"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrGenerateKey(path); err == nil {
		t.Error("corrupt key file accepted")
	}
}

func newTestNode(t *testing.T, gossip Gossip) *Node {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return NewNode(key, gossip, diag.NullLogger)
}

// waitEvent reads events until one of the wanted type arrives.
func waitEvent(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event channel closed while waiting for %v", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %v", want)
		}
	}
}

func TestSessionJoinAndBroadcast(t *testing.T) {
	ctx := context.Background()
	hub := NewMemHub()
	topic := TopicForAddress("inkwell://draft/shared")

	nodeA := newTestNode(t, hub)
	nodeB := newTestNode(t, hub)

	sessA, err := Join(ctx, nodeA, topic, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sessA.Close()
	waitEvent(t, sessA.Events(), EventJoined)

	sessB, err := Join(ctx, nodeB, topic, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sessB.Close()
	waitEvent(t, sessB.Events(), EventJoined)

	joined := waitEvent(t, sessA.Events(), EventPeerJoined)
	if joined.Peer != nodeB.ID() {
		t.Errorf("peer joined = %s, want %s", joined.Peer, nodeB.ID())
	}

	msg := wire.Join{Identity: "did:example:alice", DisplayName: "Alice"}
	if err := sessB.Broadcast(ctx, msg); err != nil {
		t.Fatal(err)
	}

	got := waitEvent(t, sessA.Events(), EventMessage)
	if got.Peer != nodeB.ID() {
		t.Errorf("message from %s, want %s", got.Peer, nodeB.ID())
	}
	join, ok := got.Message.(wire.Join)
	if !ok {
		t.Fatalf("message type %T, want wire.Join", got.Message)
	}
	if join.Identity != msg.Identity || join.DisplayName != msg.DisplayName {
		t.Errorf("join = %+v, want %+v", join, msg)
	}
}

// A malformed payload from one peer is skipped; later valid traffic
// still arrives.
func TestSessionSkipsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	hub := NewMemHub()
	topic := TopicForAddress("inkwell://draft/noisy")

	node := newTestNode(t, hub)
	sess, err := Join(ctx, node, topic, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	waitEvent(t, sess.Events(), EventJoined)

	rogue, err := hub.Subscribe(ctx, "rogue", topic, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rogue.Close()
	waitEvent(t, sess.Events(), EventPeerJoined)

	if err := rogue.Broadcast(ctx, []byte{0xee, 0x01, 0x02}); err != nil {
		t.Fatal(err)
	}
	valid, err := wire.Encode(wire.Leave{Identity: "bye"})
	if err != nil {
		t.Fatal(err)
	}
	if err := rogue.Broadcast(ctx, valid); err != nil {
		t.Fatal(err)
	}

	got := waitEvent(t, sess.Events(), EventMessage)
	if _, ok := got.Message.(wire.Leave); !ok {
		t.Errorf("message type %T, want wire.Leave (malformed payload should be skipped)", got.Message)
	}
}

func TestSessionObservesPeerLeft(t *testing.T) {
	ctx := context.Background()
	hub := NewMemHub()
	topic := TopicForAddress("inkwell://draft/departures")

	nodeA := newTestNode(t, hub)
	nodeB := newTestNode(t, hub)

	sessA, err := Join(ctx, nodeA, topic, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sessA.Close()

	sessB, err := Join(ctx, nodeB, topic, nil)
	if err != nil {
		t.Fatal(err)
	}
	waitEvent(t, sessA.Events(), EventPeerJoined)

	if err := sessB.Close(); err != nil {
		t.Fatal(err)
	}
	left := waitEvent(t, sessA.Events(), EventPeerLeft)
	if left.Peer != nodeB.ID() {
		t.Errorf("peer left = %s, want %s", left.Peer, nodeB.ID())
	}
}

// Overflowing a slow subscriber sheds oldest events and surfaces a lag
// signal instead of blocking the sender.
func TestMemHubOverflowSignalsLag(t *testing.T) {
	ctx := context.Background()
	hub := NewMemHub()
	topic := TopicForAddress("inkwell://draft/firehose")

	slow, err := hub.Subscribe(ctx, "slow", topic, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer slow.Close()
	fast, err := hub.Subscribe(ctx, "fast", topic, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fast.Close()

	payload, err := wire.Encode(wire.Leave{Identity: "x"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < connBuffer*2; i++ {
		if err := fast.Broadcast(ctx, payload); err != nil {
			t.Fatal(err)
		}
	}
	last, err := wire.Encode(wire.Join{Identity: "last"})
	if err != nil {
		t.Fatal(err)
	}
	if err := fast.Broadcast(ctx, last); err != nil {
		t.Fatal(err)
	}

	sawLag, sawLast := false, false
	for len(slow.Events()) > 0 {
		switch ev := <-slow.Events(); {
		case ev.Type == RawLagged:
			sawLag = true
		case ev.Type == RawMessage && bytes.Equal(ev.Payload, last):
			sawLast = true
		}
	}
	if !sawLag {
		t.Error("overflowed subscriber never saw a lag signal")
	}
	if !sawLast {
		t.Error("overflow dropped the newest event instead of the oldest")
	}
}
