package diag

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Output: &buf, Prefix: "test"})

	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept warn")
	log.Error("kept error")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("filtered message reached output: %q", out)
	}
	if !strings.Contains(out, "kept warn") || !strings.Contains(out, "kept error") {
		t.Errorf("enabled messages missing: %q", out)
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelDebug, Output: &buf})

	log.WithComponent("sync").WithField("draft", "d1").Info("cycle done")

	out := buf.String()
	if !strings.Contains(out, "component=sync") || !strings.Contains(out, "draft=d1") {
		t.Errorf("fields missing from output: %q", out)
	}
	// Derived loggers must not leak fields back into the parent.
	buf.Reset()
	log.Info("bare")
	if strings.Contains(buf.String(), "component=") {
		t.Errorf("parent logger inherited child fields: %q", buf.String())
	}
}

func TestRingEviction(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Append(fmt.Sprintf("line-%d", i))
	}

	got := r.Lines()
	want := []string{"line-2", "line-3", "line-4"}
	if len(got) != len(want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Lines()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoggerRingCapture(t *testing.T) {
	ring := NewRing(8)
	log := New(Config{Level: LevelInfo, Output: &bytes.Buffer{}, Ring: ring})

	log.Info("captured")
	log.Debug("below level, not captured")

	if ring.Len() != 1 {
		t.Fatalf("ring captured %d lines, want 1", ring.Len())
	}
	if !strings.Contains(ring.Lines()[0], "captured") {
		t.Errorf("ring content = %q", ring.Lines()[0])
	}
}
