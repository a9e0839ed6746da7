package cmap

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
)

// ErrUnroutable is returned when the Selector rejects a key.
var ErrUnroutable = errors.New("cmap: key cannot be routed to a shard")

// Selector maps a key to a shard index in [0, ShardCount).
// It returns false for keys that have no shard.
type Selector[K comparable] func(key K) (int, bool)

// Map is an ordered, concurrent-safe sharded map.
type Map[K comparable, V any] struct {
	// mu is held shared by lock sets and exclusively by whole-map views.
	mu       sync.RWMutex
	shards   []*shard[K, V]
	selector Selector[K]
}

type shard[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]*list.Element
	chain *list.List
}

type node[K comparable, V any] struct {
	key   K
	value V
}

// New creates a map with shardCount shards routed by selector.
func New[K comparable, V any](shardCount int, selector Selector[K]) *Map[K, V] {
	if shardCount <= 0 {
		panic(fmt.Sprintf("cmap: invalid shard count %d", shardCount))
	}
	if selector == nil {
		panic("cmap: nil selector")
	}

	m := &Map[K, V]{
		shards:   make([]*shard[K, V], shardCount),
		selector: selector,
	}
	for i := range m.shards {
		m.shards[i] = newShard[K, V]()
	}
	return m
}

func newShard[K comparable, V any]() *shard[K, V] {
	return &shard[K, V]{
		items: make(map[K]*list.Element),
		chain: list.New(),
	}
}

// ShardOf returns the shard index for key.
func (m *Map[K, V]) ShardOf(key K) (int, bool) {
	idx, ok := m.selector(key)
	if !ok || idx < 0 || idx >= len(m.shards) {
		return 0, false
	}
	return idx, true
}

// ShardCount returns the number of shards.
func (m *Map[K, V]) ShardCount() int {
	return len(m.shards)
}

// Get retrieves a value by key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	var zero V
	ls, err := m.LockKeys([]K{key})
	if err != nil {
		return zero, false
	}
	defer ls.Unlock()
	return ls.Get(key)
}

// Set stores a key-value pair. It returns ErrUnroutable for keys the
// selector rejects.
func (m *Map[K, V]) Set(key K, value V) error {
	ls, err := m.LockKeys([]K{key})
	if err != nil {
		return err
	}
	defer ls.Unlock()
	ls.Set(key, value)
	return nil
}

// Delete removes a key and reports whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	ls, err := m.LockKeys([]K{key})
	if err != nil {
		return false
	}
	defer ls.Unlock()
	return ls.Delete(key)
}

// Has checks if a key exists.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Count returns the total number of items.
func (m *Map[K, V]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, s := range m.shards {
		s.mu.Lock()
		count += len(s.items)
		s.mu.Unlock()
	}
	return count
}

// Clear removes all items.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.shards {
		m.shards[i] = newShard[K, V]()
	}
}

// ShardStats describes one shard.
type ShardStats struct {
	Index int
	Count int
}

// Stats returns statistics about all shards.
func (m *Map[K, V]) Stats() []ShardStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]ShardStats, len(m.shards))
	for i, s := range m.shards {
		s.mu.Lock()
		stats[i] = ShardStats{Index: i, Count: len(s.items)}
		s.mu.Unlock()
	}
	return stats
}

func (s *shard[K, V]) get(key K) (V, bool) {
	if e, ok := s.items[key]; ok {
		return e.Value.(*node[K, V]).value, true
	}
	var zero V
	return zero, false
}

// set replaces the value in place or pushes a new node to the chain head.
func (s *shard[K, V]) set(key K, value V) bool {
	if e, ok := s.items[key]; ok {
		e.Value.(*node[K, V]).value = value
		return false
	}
	s.items[key] = s.chain.PushFront(&node[K, V]{key: key, value: value})
	return true
}

func (s *shard[K, V]) delete(key K) bool {
	e, ok := s.items[key]
	if !ok {
		return false
	}
	s.chain.Remove(e)
	delete(s.items, key)
	return true
}
