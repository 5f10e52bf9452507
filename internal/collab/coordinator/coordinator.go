// Package coordinator drives the lifecycle of one live collaboration
// session: binding the transport, publishing presence, joining the
// gossip topic, and routing traffic between the document and the
// network. It owns the session's single authoritative State value and
// exposes peer information only as presence snapshots.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/dshills/inkwell/internal/cache"
	"github.com/dshills/inkwell/internal/collab/crdt"
	"github.com/dshills/inkwell/internal/collab/discovery"
	"github.com/dshills/inkwell/internal/collab/presence"
	"github.com/dshills/inkwell/internal/collab/store"
	"github.com/dshills/inkwell/internal/collab/sync"
	"github.com/dshills/inkwell/internal/collab/transport"
	"github.com/dshills/inkwell/internal/collab/wire"
	"github.com/dshills/inkwell/internal/diag"
)

// ErrNotActive is returned when a broadcast is attempted outside the
// active phase.
var ErrNotActive = errors.New("coordinator: session not active")

// Config configures one collaboration session.
type Config struct {
	// Draft is the address of the edited resource.
	Draft store.Address
	// Identity and DisplayName are announced to peers on join.
	Identity    string
	DisplayName string
	// RelayURL is the optional relay hint published with presence.
	RelayURL string
	// ListenAddr is the transport address published for this node.
	ListenAddr string
	// PresenceInterval is the presence-record refresh period.
	// Defaults to 5 minutes.
	PresenceInterval time.Duration
	// PeerPollInterval is the peer-list polling period. Defaults to
	// 15 seconds.
	PeerPollInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.PresenceInterval <= 0 {
		c.PresenceInterval = 5 * time.Minute
	}
	if c.PeerPollInterval <= 0 {
		c.PeerPollInterval = 15 * time.Second
	}
}

// RemoteUpdateFunc is invoked for every CRDT delta or snapshot
// received from a peer, after it has been imported.
type RemoteUpdateFunc func()

// Coordinator runs one session.
type Coordinator struct {
	cfg     Config
	node    *transport.Node
	store   store.Store
	syncer  *sync.Syncer
	doc     *crdt.Document
	tracker *presence.Tracker
	log     *diag.Logger

	// peerCache memoizes decoded presence records by content hash so
	// the seconds-scale poll only pays for JSON decoding on change.
	peerCache cache.Cache[string, discovery.PresenceRecord]

	mu       stdsync.Mutex
	state    State
	session  *transport.Session
	onRemote RemoteUpdateFunc

	bgCancel context.CancelFunc
	done     chan struct{}
}

// New creates a coordinator for one draft. The store carries both the
// edit chain and presence records.
func New(cfg Config, node *transport.Node, st store.Store, doc *crdt.Document, log *diag.Logger) *Coordinator {
	cfg.applyDefaults()
	if log == nil {
		log = diag.NullLogger
	}
	return &Coordinator{
		cfg:     cfg,
		node:    node,
		store:   st,
		syncer:  sync.NewSyncer(st, log),
		doc:     doc,
		tracker: presence.NewTracker(),
		log:     log.WithComponent("coordinator"),
		state:   State{Phase: PhaseInitializing},
		done:    make(chan struct{}),
		// Presence records are tiny and expire on their own schedule;
		// a short TTL keeps stale relay hints from being replayed.
		peerCache: cache.NewLRU[string, discovery.PresenceRecord](256, 10*time.Minute),
	}
}

// OnRemoteUpdate registers a callback fired after each imported remote
// change. Must be called before Start.
func (c *Coordinator) OnRemoteUpdate(fn RemoteUpdateFunc) {
	c.onRemote = fn
}

// State returns the current session state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Presence returns an immutable snapshot of all known peers.
func (c *Coordinator) Presence() presence.Snapshot {
	return c.tracker.Snapshot()
}

// Start brings the session up: publish the presence record, join the
// gossip topic, and announce ourselves. The state advances to Active
// only once the subscription is confirmed live; any startup failure is
// terminal and recorded as the Error state.
func (c *Coordinator) Start(ctx context.Context) error {
	c.setState(State{
		Phase:    PhaseCreatingSession,
		NodeID:   c.node.ID(),
		RelayURL: c.cfg.RelayURL,
	})

	if err := c.publishPresence(ctx); err != nil {
		return c.fail(fmt.Errorf("publish presence: %w", err))
	}

	bootstrap, err := c.bootstrapPeers(ctx)
	if err != nil {
		c.log.Warn("peer discovery failed, joining without bootstrap: %v", err)
	}

	topic := transport.TopicForAddress(string(c.cfg.Draft))
	session, err := transport.Join(ctx, c.node, topic, bootstrap)
	if err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	bgCtx, cancel := context.WithCancel(context.Background())
	c.bgCancel = cancel
	go c.eventLoop(bgCtx, session, topic)
	go c.presenceRefreshLoop(bgCtx)
	go c.peerPollLoop(bgCtx)
	return nil
}

// Stop announces the departure and tears the session down.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil
	}

	if err := session.Broadcast(ctx, wire.Leave{Identity: c.cfg.Identity}); err != nil {
		c.log.Debug("leave broadcast failed: %v", err)
	}
	if c.bgCancel != nil {
		c.bgCancel()
	}
	err := session.Close()
	<-c.done
	return err
}

// BroadcastUpdate exports the document's pending changes and gossips
// them to all peers. A document with no pending changes is a no-op.
func (c *Coordinator) BroadcastUpdate(ctx context.Context) error {
	session := c.activeSession()
	if session == nil {
		return ErrNotActive
	}

	delta, err := c.doc.ExportUpdatesSinceSync()
	if errors.Is(err, crdt.ErrNoUpdates) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("export updates: %w", err)
	}
	return session.Broadcast(ctx, wire.Update{Delta: delta, Version: c.doc.Version()})
}

// BroadcastCursor gossips the local caret and selection.
func (c *Coordinator) BroadcastCursor(ctx context.Context, position int, selection *wire.Span) error {
	session := c.activeSession()
	if session == nil {
		return ErrNotActive
	}
	return session.Broadcast(ctx, wire.Cursor{
		Position:  position,
		Selection: selection,
		Color:     presence.ColorFor(c.cfg.Identity),
	})
}

// SyncDraft runs one persistence cycle against the record store:
// anchoring the edit root on first save, pushing a diff otherwise.
// Retryable failures are logged and surface to the caller; local
// editing is never blocked by them.
func (c *Coordinator) SyncDraft(ctx context.Context) error {
	err := c.syncer.SyncCycle(ctx, c.doc, c.cfg.Draft)
	if err != nil && sync.IsRetryable(err) {
		c.log.Warn("sync cycle failed, will retry: %v", err)
	}
	return err
}

func (c *Coordinator) activeSession() *transport.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != PhaseActive {
		return nil
	}
	return c.session
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.log.Info("session state: %s", s.Phase)
}

func (c *Coordinator) fail(err error) error {
	c.setState(State{Phase: PhaseError, Message: err.Error()})
	close(c.done)
	return err
}

// eventLoop routes session events until the subscription closes. A
// failing import or a lag signal never stops the loop.
func (c *Coordinator) eventLoop(ctx context.Context, session *transport.Session, topic transport.TopicID) {
	defer close(c.done)

	for ev := range session.Events() {
		switch ev.Type {
		case transport.EventJoined:
			c.setState(State{
				Phase:      PhaseActive,
				NodeID:     c.node.ID(),
				RelayURL:   c.cfg.RelayURL,
				SessionURI: fmt.Sprintf("inkwell://session/%s", topic),
			})
			if err := session.Broadcast(ctx, wire.Join{
				Identity:    c.cfg.Identity,
				DisplayName: c.cfg.DisplayName,
			}); err != nil {
				c.log.Warn("join announcement failed: %v", err)
			}

		case transport.EventPeerJoined:
			// The newcomer missed our original announcement.
			if err := session.Broadcast(ctx, wire.Join{
				Identity:    c.cfg.Identity,
				DisplayName: c.cfg.DisplayName,
			}); err != nil {
				c.log.Warn("re-announcement failed: %v", err)
			}

		case transport.EventPeerLeft:
			c.tracker.HandleLeave(ev.Peer)

		case transport.EventLagged:
			c.log.Warn("gossip lagged; requesting catch-up")
			c.requestCatchUp(ctx, session)

		case transport.EventMessage:
			c.handleMessage(ctx, session, ev)
		}
	}
}

func (c *Coordinator) handleMessage(ctx context.Context, session *transport.Session, ev transport.Event) {
	switch msg := ev.Message.(type) {
	case wire.Update:
		c.importRemote(ev.Peer, msg.Delta)

	case wire.Cursor:
		c.tracker.HandleCursor(ev.Peer, msg)

	case wire.Join:
		c.tracker.HandleJoin(ev.Peer, msg)

	case wire.Leave:
		c.tracker.HandleLeave(ev.Peer)

	case wire.SyncRequest:
		if msg.HaveVersion.Equal(c.doc.Version()) {
			return
		}
		snapshot, err := c.doc.ExportSnapshot()
		if err != nil {
			c.log.Error("snapshot for catch-up failed: %v", err)
			return
		}
		if err := session.Broadcast(ctx, wire.SyncResponse{Data: snapshot, IsSnapshot: true}); err != nil {
			c.log.Warn("catch-up response failed: %v", err)
		}

	case wire.SyncResponse:
		c.importRemote(ev.Peer, msg.Data)
	}
}

// importRemote applies peer bytes to the document. Imports are atomic:
// a malformed payload is rejected, logged, and the session continues.
func (c *Coordinator) importRemote(peer transport.NodeID, data []byte) {
	if err := c.doc.Import(data); err != nil {
		c.log.Warn("rejecting import from %s: %v", peer, err)
		return
	}
	if c.onRemote != nil {
		c.onRemote()
	}
}

// requestCatchUp asks peers for everything past our current version.
// Used after lag, when gossip traffic may have been dropped.
func (c *Coordinator) requestCatchUp(ctx context.Context, session *transport.Session) {
	if err := session.Broadcast(ctx, wire.SyncRequest{HaveVersion: c.doc.Version()}); err != nil {
		c.log.Warn("catch-up request failed: %v", err)
	}
}

// publishPresence durably stores this node's presence record.
func (c *Coordinator) publishPresence(ctx context.Context) error {
	addr := discovery.PeerAddress{
		NodeID:   c.node.ID(),
		Host:     c.cfg.ListenAddr,
		RelayURL: c.cfg.RelayURL,
	}
	value, err := json.Marshal(discovery.PresenceRecord{
		Address:   addr.String(),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = c.store.Put(ctx, store.CollectionPresence, value)
	return err
}

// bootstrapPeers builds the join bootstrap list from published
// presence records.
func (c *Coordinator) bootstrapPeers(ctx context.Context) ([]string, error) {
	records, err := c.store.List(ctx, store.CollectionPresence, store.Filter{})
	if err != nil {
		return nil, err
	}
	entries := make([]discovery.PresenceRecord, 0, len(records))
	for _, rec := range records {
		if entry, ok := c.peerCache.Get(rec.Ref.Hash); ok {
			entries = append(entries, entry)
			continue
		}
		var entry discovery.PresenceRecord
		if err := json.Unmarshal(rec.Value, &entry); err != nil {
			continue
		}
		c.peerCache.Insert(rec.Ref.Hash, entry)
		entries = append(entries, entry)
	}
	return discovery.BootstrapList(entries, c.node.ID()), nil
}

// presenceRefreshLoop republishes the presence record on a minutes
// scale so other peers keep finding this node.
func (c *Coordinator) presenceRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PresenceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.publishPresence(ctx); err != nil {
				c.log.Warn("presence refresh failed: %v", err)
			}
		}
	}
}

// peerPollLoop polls published presence records on a seconds scale.
// Discovery runs independently of the main session and never blocks
// it.
func (c *Coordinator) peerPollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PeerPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			peers, err := c.bootstrapPeers(ctx)
			if err != nil {
				c.log.Debug("peer poll failed: %v", err)
				continue
			}
			c.log.Debug("discovery sees %d peers", len(peers))
		}
	}
}
