// Package store provides SQLite-backed durable storage for guest wishes.
//
// It is the default wish.Repository. Records live in a single wishes table:
//
//   - id: "<invitation>:<name key>" for personal links, a UUIDv7 otherwise
//   - name_key: NULL for anonymous wishes
//   - created_at: unix microseconds from a monotonic clock
//
// # Idempotent create
//
// CreateIfAbsent runs a check-then-write inside one transaction. The pool is
// limited to a single connection, so transactions from one process are
// serialized and exactly one concurrent attempt sees the record absent.
// Writers in other processes are stopped by the primary key and by the
// unique (invitation_id, name_key) index; those constraint violations are
// reported as wish.ErrAlreadyExists too.
//
// # Deterministic Query Results
//
// Lists are ordered by created_at DESC, id ASC COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
