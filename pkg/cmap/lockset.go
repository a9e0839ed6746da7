package cmap

import (
	"fmt"
	"sort"
)

// LockSet holds the locks of a fixed set of shards. Operations on a
// LockSet may only touch keys routed to one of those shards.
type LockSet[K comparable, V any] struct {
	m       *Map[K, V]
	indices []int
	held    map[int]struct{}
	done    bool
}

// ShardsFor returns the deduplicated shard indices for keys, sorted
// ascending. It fails on the first key the selector rejects.
func (m *Map[K, V]) ShardsFor(keys []K) ([]int, error) {
	seen := make(map[int]struct{}, len(keys))
	indices := make([]int, 0, len(keys))
	for _, k := range keys {
		idx, ok := m.ShardOf(k)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnroutable, k)
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}

// LockKeys locks every shard touched by keys.
//
// The map lock is taken shared first, then shard locks in ascending index
// order. Every caller follows the same order, so two batches that share
// shards can never wait on each other in a cycle.
func (m *Map[K, V]) LockKeys(keys []K) (*LockSet[K, V], error) {
	indices, err := m.ShardsFor(keys)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	held := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		m.shards[idx].mu.Lock()
		held[idx] = struct{}{}
	}

	return &LockSet[K, V]{m: m, indices: indices, held: held}, nil
}

// Indices returns the locked shard indices in acquisition order.
func (ls *LockSet[K, V]) Indices() []int {
	out := make([]int, len(ls.indices))
	copy(out, ls.indices)
	return out
}

// Unlock releases the shard locks in reverse acquisition order, then the
// map lock. Calling Unlock twice is a no-op.
func (ls *LockSet[K, V]) Unlock() {
	if ls.done {
		return
	}
	ls.done = true
	for i := len(ls.indices) - 1; i >= 0; i-- {
		ls.m.shards[ls.indices[i]].mu.Unlock()
	}
	ls.m.mu.RUnlock()
}

// Get retrieves a value by key.
func (ls *LockSet[K, V]) Get(key K) (V, bool) {
	return ls.shard(key).get(key)
}

// Set stores a key-value pair and reports whether the key was created.
func (ls *LockSet[K, V]) Set(key K, value V) bool {
	return ls.shard(key).set(key, value)
}

// Delete removes a key and reports whether it was present.
func (ls *LockSet[K, V]) Delete(key K) bool {
	return ls.shard(key).delete(key)
}

func (ls *LockSet[K, V]) shard(key K) *shard[K, V] {
	if ls.done {
		panic("cmap: use of released lock set")
	}
	idx, ok := ls.m.ShardOf(key)
	if !ok {
		panic(fmt.Sprintf("cmap: unroutable key %v", key))
	}
	if _, held := ls.held[idx]; !held {
		panic(fmt.Sprintf("cmap: shard %d not held by lock set", idx))
	}
	return ls.m.shards[idx]
}
