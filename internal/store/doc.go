// Package store provides SQLite-backed durable storage for action histories.
//
// Each committed action group is one row keyed by (owner_id, id). Writes are
// append-only and idempotent: a group already present is left untouched, so
// writing a merged history over an older one only adds rows.
//
// # Ordering
//
// Reads return groups ordered by time_secs, time_nanos, then id compared
// as raw bytes. This is the same order history.Merge produces, so a history
// read back from the store replays exactly like the one written.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
