package coordinator

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/dshills/inkwell/internal/collab/crdt"
	"github.com/dshills/inkwell/internal/collab/store"
	"github.com/dshills/inkwell/internal/collab/transport"
	"github.com/dshills/inkwell/internal/diag"
)

func newTestNode(t *testing.T, gossip transport.Gossip) *transport.Node {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return transport.NewNode(key, gossip, diag.NullLogger)
}

func newTestDoc(t *testing.T, text string) *crdt.Document {
	t.Helper()
	engine, err := crdt.NewAutomergeEngine(text)
	if err != nil {
		t.Fatal(err)
	}
	return crdt.NewDocument(engine)
}

// forkedDocs returns two documents sharing a common history so their
// updates merge.
func forkedDocs(t *testing.T, text string) (*crdt.Document, *crdt.Document) {
	t.Helper()
	origin, err := crdt.NewAutomergeEngine(text)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := origin.ExportSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	a, err := crdt.LoadAutomergeEngine(snap)
	if err != nil {
		t.Fatal(err)
	}
	b, err := crdt.LoadAutomergeEngine(snap)
	if err != nil {
		t.Fatal(err)
	}
	return crdt.NewDocument(a), crdt.NewDocument(b)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testConfig(identity, name string) Config {
	return Config{
		Draft:       "inkwell://draft/test",
		Identity:    identity,
		DisplayName: name,
		ListenAddr:  "127.0.0.1:0",
	}
}

func TestStartReachesActive(t *testing.T) {
	ctx := context.Background()
	hub := transport.NewMemHub()
	st := store.NewMemoryStore()

	coord := New(testConfig("alice", "Alice"), newTestNode(t, hub), st, newTestDoc(t, "draft"), diag.NullLogger)
	if coord.State().Phase != PhaseInitializing {
		t.Fatalf("initial phase = %s", coord.State().Phase)
	}

	if err := coord.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer coord.Stop(ctx)

	waitFor(t, "active phase", func() bool { return coord.State().Phase == PhaseActive })
	state := coord.State()
	if state.SessionURI == "" {
		t.Error("active state has no session URI")
	}
	if state.NodeID == "" {
		t.Error("active state has no node id")
	}
}

// A peer joining the session moves the presence peer count from 0 to 1
// and surfaces its display name.
func TestPeerJoinUpdatesPresence(t *testing.T) {
	ctx := context.Background()
	hub := transport.NewMemHub()
	st := store.NewMemoryStore()

	alice := New(testConfig("alice", "Alice"), newTestNode(t, hub), st, newTestDoc(t, "a"), diag.NullLogger)
	if err := alice.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer alice.Stop(ctx)
	waitFor(t, "alice active", func() bool { return alice.State().Phase == PhaseActive })

	if got := alice.Presence().PeerCount; got != 0 {
		t.Fatalf("peer count before join = %d, want 0", got)
	}

	bob := New(testConfig("bob", "Bob"), newTestNode(t, hub), st, newTestDoc(t, "b"), diag.NullLogger)
	if err := bob.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer bob.Stop(ctx)

	waitFor(t, "alice sees bob", func() bool { return alice.Presence().PeerCount == 1 })
	if got := alice.Presence().Collaborators[0].DisplayName; got != "Bob" {
		t.Errorf("collaborator name = %q, want %q", got, "Bob")
	}

	// Existing peers re-announce, so the newcomer learns them too.
	waitFor(t, "bob sees alice", func() bool { return bob.Presence().PeerCount == 1 })
}

func TestRemoteUpdateConverges(t *testing.T) {
	ctx := context.Background()
	hub := transport.NewMemHub()
	st := store.NewMemoryStore()
	docA, docB := forkedDocs(t, "shared")

	notified := make(chan struct{}, 8)
	a := New(testConfig("alice", "Alice"), newTestNode(t, hub), st, docA, diag.NullLogger)
	b := New(testConfig("bob", "Bob"), newTestNode(t, hub), st, docB, diag.NullLogger)
	b.OnRemoteUpdate(func() { notified <- struct{}{} })

	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer a.Stop(ctx)
	if err := b.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer b.Stop(ctx)
	waitFor(t, "both active", func() bool {
		return a.State().Phase == PhaseActive && b.State().Phase == PhaseActive
	})

	if err := docA.Splice(0, 0, "edit: "); err != nil {
		t.Fatal(err)
	}
	if err := a.BroadcastUpdate(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("remote update callback never fired")
	}

	textB, err := docB.Text()
	if err != nil {
		t.Fatal(err)
	}
	if textB != "edit: shared" {
		t.Errorf("peer text = %q, want %q", textB, "edit: shared")
	}
}

func TestBroadcastRequiresActiveSession(t *testing.T) {
	hub := transport.NewMemHub()
	coord := New(testConfig("alice", "Alice"), newTestNode(t, hub), store.NewMemoryStore(), newTestDoc(t, "x"), diag.NullLogger)

	if err := coord.BroadcastUpdate(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Errorf("BroadcastUpdate error = %v, want ErrNotActive", err)
	}
	if err := coord.BroadcastCursor(context.Background(), 0, nil); !errors.Is(err, ErrNotActive) {
		t.Errorf("BroadcastCursor error = %v, want ErrNotActive", err)
	}
}

// failingGossip rejects every subscription.
type failingGossip struct{}

func (failingGossip) Subscribe(context.Context, transport.NodeID, transport.TopicID, []string) (transport.Conn, error) {
	return nil, errors.New("no route to relay")
}

func TestBindFailureIsTerminal(t *testing.T) {
	coord := New(testConfig("alice", "Alice"), newTestNode(t, failingGossip{}), store.NewMemoryStore(), newTestDoc(t, "x"), diag.NullLogger)

	err := coord.Start(context.Background())
	if err == nil {
		t.Fatal("expected start failure")
	}
	if !errors.Is(err, transport.ErrBindFailed) {
		t.Errorf("error = %v, want ErrBindFailed", err)
	}
	state := coord.State()
	if state.Phase != PhaseError {
		t.Errorf("phase = %s, want error", state.Phase)
	}
	if state.Message == "" {
		t.Error("error state carries no message")
	}
}

func TestSyncDraftPersistsChain(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	doc := newTestDoc(t, "persist me")
	coord := New(testConfig("alice", "Alice"), newTestNode(t, transport.NewMemHub()), st, doc, diag.NullLogger)

	if err := coord.SyncDraft(ctx); err != nil {
		t.Fatal(err)
	}
	if doc.EditRoot() == nil {
		t.Fatal("first sync did not anchor an edit root")
	}
	if doc.HasUnsyncedChanges() {
		t.Error("document should be clean after sync")
	}
}
