package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/inkwell/internal/diag"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inkwell.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "info" || cfg.Collab.PresenceInterval != "5m" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[identity]
handle = "alice.example.org"
key_path = "/tmp/alice.key"

[collab]
relay_url = "wss://relay.inkwell.sh/ws"
sync_interval = "10s"

[log]
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Identity.Handle != "alice.example.org" {
		t.Errorf("handle = %q", cfg.Identity.Handle)
	}
	if cfg.Identity.DisplayName != "alice.example.org" {
		t.Errorf("display name should default to handle, got %q", cfg.Identity.DisplayName)
	}
	if cfg.Collab.RelayURL != "wss://relay.inkwell.sh/ws" {
		t.Errorf("relay = %q", cfg.Collab.RelayURL)
	}
	if cfg.Collab.SyncInterval != "10s" {
		t.Errorf("sync interval = %q", cfg.Collab.SyncInterval)
	}
	// Untouched sections keep their defaults.
	if cfg.Collab.PresenceInterval != "5m" {
		t.Errorf("presence interval = %q", cfg.Collab.PresenceInterval)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad duration", "[collab]\nsync_interval = \"often\"\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"bad ring size", "[log]\nring_size = -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); !errors.Is(err, ErrInvalid) {
				t.Errorf("Load error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	presence, peerPoll, sync := cfg.Collab.Durations()
	if presence != 5*time.Minute || peerPoll != 15*time.Second || sync != 30*time.Second {
		t.Errorf("durations = %v, %v, %v", presence, peerPoll, sync)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"info\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan Config, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, path, diag.NullLogger, func(cfg Config) {
			select {
			case changed <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.Log.Level != "debug" {
			t.Errorf("reloaded level = %q, want debug", cfg.Log.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never delivered the reloaded config")
	}

	cancel()
	<-done
}
