package cmap

// Entry is a key-value pair returned by Items.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Range iterates over all key-value pairs in shard index order and, within
// a shard, most-recently-inserted first.
//
// The callback returns false to stop iteration. Range holds the map lock
// exclusively, so the view is consistent; fn must not call back into m.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rangeLocked(fn)
}

func (m *Map[K, V]) rangeLocked(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		for e := s.chain.Front(); e != nil; e = e.Next() {
			n := e.Value.(*node[K, V])
			if !fn(n.key, n.value) {
				return
			}
		}
	}
}

// Items returns a consistent copy of all pairs in Range order.
func (m *Map[K, V]) Items() []Entry[K, V] {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, s := range m.shards {
		n += len(s.items)
	}
	items := make([]Entry[K, V], 0, n)
	m.rangeLocked(func(key K, value V) bool {
		items = append(items, Entry[K, V]{Key: key, Value: value})
		return true
	})
	return items
}

// Keys returns all keys in Range order.
func (m *Map[K, V]) Keys() []K {
	items := m.Items()
	keys := make([]K, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}

// Exclusive runs fn while holding the map lock exclusively. No lock set
// can be live while fn runs.
func (m *Map[K, V]) Exclusive(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}
