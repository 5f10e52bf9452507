// Package config loads and watches the application's TOML
// configuration: identity, collaboration endpoints, sync intervals,
// and logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrInvalid wraps configuration validation failures.
var ErrInvalid = errors.New("config: invalid")

// Config is the root configuration.
type Config struct {
	Identity IdentityConfig `toml:"identity"`
	Collab   CollabConfig   `toml:"collab"`
	Log      LogConfig      `toml:"log"`
}

// IdentityConfig describes who the local user is on the network.
type IdentityConfig struct {
	// Handle is the user's network identity.
	Handle string `toml:"handle"`
	// DisplayName is shown to collaborators. Defaults to the handle.
	DisplayName string `toml:"display_name"`
	// KeyPath is where the node keypair is persisted.
	KeyPath string `toml:"key_path"`
}

// CollabConfig tunes the collaboration session.
type CollabConfig struct {
	// RelayURL is the websocket relay for peers without direct
	// connectivity. Empty means direct gossip only.
	RelayURL string `toml:"relay_url"`
	// ListenAddr is the transport address published in presence
	// records.
	ListenAddr string `toml:"listen_addr"`
	// PresenceInterval is the presence-record refresh period, as a
	// duration string ("5m").
	PresenceInterval string `toml:"presence_interval"`
	// PeerPollInterval is the peer discovery polling period ("15s").
	PeerPollInterval string `toml:"peer_poll_interval"`
	// SyncInterval is the edit-chain persistence period ("30s").
	SyncInterval string `toml:"sync_interval"`
}

// LogConfig tunes diagnostics.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// RingSize is the capacity of the in-memory diagnostic buffer.
	RingSize int `toml:"ring_size"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Identity: IdentityConfig{
			KeyPath: filepath.Join(home, ".inkwell", "node.key"),
		},
		Collab: CollabConfig{
			ListenAddr:       "127.0.0.1:4400",
			PresenceInterval: "5m",
			PeerPollInterval: "15s",
			SyncInterval:     "30s",
		},
		Log: LogConfig{
			Level:    "info",
			RingSize: 256,
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file
// yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Identity.DisplayName == "" {
		cfg.Identity.DisplayName = cfg.Identity.Handle
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c Config) Validate() error {
	for name, value := range map[string]string{
		"collab.presence_interval":  c.Collab.PresenceInterval,
		"collab.peer_poll_interval": c.Collab.PeerPollInterval,
		"collab.sync_interval":      c.Collab.SyncInterval,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s = %q: %v", ErrInvalid, name, value, err)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level = %q", ErrInvalid, c.Log.Level)
	}
	if c.Log.RingSize < 0 {
		return fmt.Errorf("%w: log.ring_size = %d", ErrInvalid, c.Log.RingSize)
	}
	return nil
}

// Durations returns the parsed interval settings. Validate must have
// accepted the configuration first.
func (c CollabConfig) Durations() (presence, peerPoll, sync time.Duration) {
	presence, _ = time.ParseDuration(c.PresenceInterval)
	peerPoll, _ = time.ParseDuration(c.PeerPollInterval)
	sync, _ = time.ParseDuration(c.SyncInterval)
	return presence, peerPoll, sync
}
