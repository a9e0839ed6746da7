// Package memory provides the in-memory storage table.
//
// The table has 36 shards, one per ASCII letter (case-folded) and digit,
// selected by the first character of the key. Each shard has its own lock;
// batches lock every shard they touch in ascending index order so that
// overlapping batches never deadlock. Full-table views (show, backup)
// take an exclusive table lock and never observe a half-applied batch.
//
// Entries within a shard are kept most-recently-inserted first, and that
// order is part of the contract of Range and Snapshot.
package memory
