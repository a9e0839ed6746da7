// Package service provides the operation layer of the key-value store.
//
// This package contains:
//
//   - KVS: batch WRITE/READ/DELETE, SHOW and snapshots over the sharded
//     table, with change notification
//   - Registry: connected client sessions, their subscriptions and the
//     notification fan-out
//
// Both types are safe for concurrent use. Lock order is table (shared),
// shards ascending, then the registry lock; the registry never calls
// back into the table while holding its lock.
package service
