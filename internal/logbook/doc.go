// Package logbook maintains the append-only activity ledger.
//
// The ledger is the system's only persisted state: one JSON object per
// line, UTF-8, never rewritten. The Writer appends work outcomes and
// resume cursors; the read side answers the questions later runs ask of
// the history (which titles map to which links, which links failed,
// where did the last listing traversal stop).
package logbook
