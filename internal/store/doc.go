// Package store provides SQLite-backed persistence for reconciled artifacts.
//
// Every kind shares one table, discriminated by the kind column:
//   - Identity: (kind, key) is UNIQUE; key is derived from (kind, location)
//   - Content: name, hash, dependencies and payload as last declared
//   - Lifecycle metadata: lifecycle, message, created_by, created_at, updated_at
//
// # Critical Patterns
//
// Upsert by key:
//   - Save preserves id, created_by and created_at of an existing row, so a
//     repeated synchronization updates in place
//
// Single-artifact unit of work:
//   - Save runs in one transaction; a failure leaves the previous row intact
//   - No cross-artifact atomicity is attempted
//
// Deterministic reads:
//   - All listings are ORDER BY kind, location COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version: Counts the migrations applied to the artifacts table
//
// Timestamps are stored as Unix nanoseconds (UTC).
package store
