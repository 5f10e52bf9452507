// Package history provides undo/redo for a text buffer.
//
// Edits are recorded after they are applied, as reversible
// old-text/new-text records. Consecutive compatible records (same
// direction, adjacent offsets, within a short time and size window) are
// coalesced into one undo step so that undo operates at roughly word
// granularity rather than per keystroke.
package history
