package diag

import "sync"

// Ring is a fixed-capacity buffer of recent log lines. When full, the
// oldest line is dropped. It is safe for concurrent use.
type Ring struct {
	mu    sync.Mutex
	lines []string
	start int
	count int
}

// NewRing creates a ring holding at most capacity lines. A capacity of
// zero or less defaults to 256.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 256
	}
	return &Ring{lines: make([]string, capacity)}
}

// Append adds a line, evicting the oldest when the ring is full.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := (r.start + r.count) % len(r.lines)
	r.lines[idx] = line
	if r.count < len(r.lines) {
		r.count++
	} else {
		r.start = (r.start + 1) % len(r.lines)
	}
}

// Lines returns the captured lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.lines[(r.start+i)%len(r.lines)]
	}
	return out
}

// Len returns the number of captured lines.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
