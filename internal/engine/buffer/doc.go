// Package buffer provides the editable text buffer for a local editing
// session.
//
// All public offsets are char offsets (Unicode scalar values), because the
// collaborative layers exchange positions in chars; byte and UTF-16 views
// are derived from the rope's summaries. The buffer validates every offset
// and returns errors instead of panicking: remote CRDT imports feed
// untrusted positions back through this API.
//
// A Buffer is owned by exactly one logical writer. Reads are safe from any
// goroutine; snapshots share the immutable rope.
package buffer
