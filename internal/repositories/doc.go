// Package repositories implements SQLite persistence for the local job ledger.
//
// Key Implementations:
//   - [JobRunRepository] : one row per accepted report job, with its terminal outcome
//   - [HistoryRepository] : the last history listing fetched from the backend, for offline use
//
// Sequence numbers give job runs a stable, human-readable order (run #42) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
