// Package pipeline runs one member/spouse merge end to end.
//
// Runner.Run loads both exports, drops unanswered responses, removes the
// configured bookkeeping columns, writes per-side checkpoints, stacks the
// two tables, stamps the per-club constant columns, and writes the merged
// file in the canonical column order. Every run holds an exclusive lock in
// the state directory and is recorded in the history ledger under a fresh
// run id that also tags its log lines.
package pipeline
