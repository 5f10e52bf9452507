// Package rope implements an immutable rope for collaborative text editing.
//
// Every node carries a summary of its subtree in three coordinate spaces at
// once: UTF-8 bytes, Unicode scalar values (chars), and UTF-16 code units.
// This makes cross-space offset conversion a tree descent instead of a full
// scan, which the editing core relies on for cursor round-tripping against
// host selection APIs.
//
// Operations return new Rope values; the original is never modified. This
// enables cheap snapshots and safe concurrent reads.
package rope
