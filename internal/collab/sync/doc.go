// Package sync persists document history to the record network as a
// chain of edit records: one root holding a full snapshot, followed by
// diffs each referencing the previous record.
//
// Push failures are retryable and never block local editing. A missing
// authentication suspends syncing only. Two peers can each anchor a
// lineage without seeing the other's, so a draft may carry multiple
// live roots; that divergence is surfaced to callers, never silently
// merged.
package sync
