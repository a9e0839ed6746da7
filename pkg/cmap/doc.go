// Package cmap provides an ordered, concurrent-safe sharded map.
//
// Keys are routed to shards by a caller-supplied Selector rather than a
// hash, so callers control which keys share a lock. Each shard keeps its
// entries in a chain ordered most-recently-inserted first.
//
//   - Fine-grained Locking: one Mutex per shard
//   - Lock Sets: multi-key batches lock every touched shard in ascending
//     index order, which keeps overlapping batches deadlock-free
//   - Whole-map Lock: Range and Snapshot hold an exclusive map lock so the
//     view is never torn by a concurrent batch
//
// Usage:
//
//	m := cmap.New[string, string](36, selectByFirstChar)
//	ls, err := m.LockKeys([]string{"a", "b"})
//	if err != nil {
//		return err
//	}
//	ls.Set("a", "1")
//	ls.Unlock()
package cmap
