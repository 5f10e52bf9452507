// Package main is the entry point for the inkwell collaborative
// editing node.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dshills/inkwell/internal/collab/coordinator"
	"github.com/dshills/inkwell/internal/collab/crdt"
	"github.com/dshills/inkwell/internal/collab/store"
	collabsync "github.com/dshills/inkwell/internal/collab/sync"
	"github.com/dshills/inkwell/internal/collab/transport"
	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/diag"
	"github.com/dshills/inkwell/internal/editor"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		draft       string
		logLevel    string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&draft, "draft", "", "Address of the draft to edit")
	flag.StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("inkwell %s (%s)\n", version, commit)
		return 0
	}
	if draft == "" {
		fmt.Fprintln(os.Stderr, "Error: -draft is required")
		return 1
	}
	if configPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, ".inkwell", "inkwell.toml")
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	ring := diag.NewRing(cfg.Log.RingSize)
	log := diag.New(diag.Config{
		Level:  diag.ParseLevel(cfg.Log.Level),
		Output: os.Stderr,
		Prefix: "inkwell",
		Ring:   ring,
	})

	if err := runSession(cfg, configPath, store.Address(draft), log); err != nil {
		log.Error("session failed: %v", err)
		return 1
	}
	return 0
}

func runSession(cfg config.Config, configPath string, draft store.Address, log *diag.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.Identity.KeyPath), 0o700); err != nil {
		return fmt.Errorf("prepare key directory: %w", err)
	}
	key, err := transport.LoadOrGenerateKey(cfg.Identity.KeyPath)
	if err != nil {
		return err
	}

	var gossip transport.Gossip
	if cfg.Collab.RelayURL != "" {
		gossip = transport.NewRelay(cfg.Collab.RelayURL, log)
	} else {
		gossip = transport.NewMemHub()
	}
	node := transport.NewNode(key, gossip, log)
	log.Info("node %s ready", node.ID())

	recordStore := store.NewMemoryStore()
	doc, ed, err := openDraft(ctx, recordStore, draft, log)
	if err != nil {
		return err
	}

	presenceIv, peerPollIv, syncIv := cfg.Collab.Durations()
	coord := coordinator.New(coordinator.Config{
		Draft:            draft,
		Identity:         cfg.Identity.Handle,
		DisplayName:      cfg.Identity.DisplayName,
		RelayURL:         cfg.Collab.RelayURL,
		ListenAddr:       cfg.Collab.ListenAddr,
		PresenceInterval: presenceIv,
		PeerPollInterval: peerPollIv,
	}, node, recordStore, doc, log)

	coord.OnRemoteUpdate(func() {
		if err := ed.RefreshFromRemote(); err != nil {
			log.Warn("remote refresh failed: %v", err)
		}
	})

	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := coord.Stop(shutdownCtx); err != nil {
			log.Warn("session teardown: %v", err)
		}
	}()

	go watchConfig(ctx, configPath, log)
	go syncLoop(ctx, coord, syncIv, log)

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// openDraft loads the draft's persisted edit chain, or starts an empty
// document when none exists yet.
func openDraft(ctx context.Context, st store.Store, draft store.Address, log *diag.Logger) (*crdt.Document, *editor.Editor, error) {
	syncer := collabsync.NewSyncer(st, log)
	doc, err := syncer.LoadFromChain(ctx, draft)
	if errors.Is(err, store.ErrNotFound) {
		engine, newErr := crdt.NewAutomergeEngine("")
		if newErr != nil {
			return nil, nil, newErr
		}
		doc = crdt.NewDocument(engine)
	} else if err != nil {
		return nil, nil, err
	}

	text, err := doc.Text()
	if err != nil {
		return nil, nil, err
	}
	return doc, editor.New(text, doc, log), nil
}

// syncLoop persists the edit chain and gossips pending updates on a
// fixed cadence. Failures are retried on the next tick.
func syncLoop(ctx context.Context, coord *coordinator.Coordinator, interval time.Duration, log *diag.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := coord.BroadcastUpdate(ctx); err != nil && !errors.Is(err, coordinator.ErrNotActive) {
				log.Warn("update broadcast failed: %v", err)
			}
			if err := coord.SyncDraft(ctx); err != nil {
				log.Warn("draft sync failed: %v", err)
			}
		}
	}
}

// watchConfig applies live log-level changes from the config file.
func watchConfig(ctx context.Context, path string, log *diag.Logger) {
	if path == "" {
		return
	}
	err := config.Watch(ctx, path, log, func(cfg config.Config) {
		log.SetLevel(diag.ParseLevel(cfg.Log.Level))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("config watch stopped: %v", err)
	}
}
