package memory

import (
	"errors"
	"sync/atomic"

	"github.com/yndnr/kvs-go/internal/core/domain"
	"github.com/yndnr/kvs-go/pkg/cmap"
)

// ShardCount is the number of shards: 26 letters then 10 digits.
const ShardCount = 36

// ShardIndex maps the first character of key to a shard.
// Letters a-z (either case) map to 0-25 and digits 0-9 to 26-35.
func ShardIndex(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	c := key[0]
	switch {
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), true
	case c >= '0' && c <= '9':
		return 26 + int(c-'0'), true
	default:
		return 0, false
	}
}

// Table is the sharded key-value table.
type Table struct {
	m      *cmap.Map[string, string]
	closed atomic.Bool
}

// New creates an empty table.
func New() *Table {
	return &Table{
		m: cmap.New[string, string](ShardCount, ShardIndex),
	}
}

// Batch is a locked view over the shards touched by one batch of keys.
type Batch struct {
	ls *cmap.LockSet[string, string]
}

// Lock validates keys and locks their shards in ascending order.
//
// It fails with ErrInvalidKey if any key has no shard, and with
// ErrNotInitialized once the table has been closed. The caller must
// call Unlock on the returned batch.
func (t *Table) Lock(keys []string) (*Batch, error) {
	if t.closed.Load() {
		return nil, domain.ErrNotInitialized
	}
	ls, err := t.m.LockKeys(keys)
	if err != nil {
		if errors.Is(err, cmap.ErrUnroutable) {
			return nil, domain.ErrInvalidKey.WithCause(err)
		}
		return nil, err
	}
	// Close flips the flag under the exclusive lock, so re-checking while
	// holding the shared lock is race free.
	if t.closed.Load() {
		ls.Unlock()
		return nil, domain.ErrNotInitialized
	}
	return &Batch{ls: ls}, nil
}

// Shards returns the locked shard indices in acquisition order.
func (b *Batch) Shards() []int {
	return b.ls.Indices()
}

// Put replaces the value of key or inserts it at the head of its shard
// chain. It reports whether the key was created.
func (b *Batch) Put(key, value string) bool {
	return b.ls.Set(key, value)
}

// Get returns the value of key.
func (b *Batch) Get(key string) (string, bool) {
	return b.ls.Get(key)
}

// Remove deletes key and reports whether it was present.
func (b *Batch) Remove(key string) bool {
	return b.ls.Delete(key)
}

// Unlock releases the batch's locks in reverse order.
func (b *Batch) Unlock() {
	b.ls.Unlock()
}

// Range visits every entry in shard order, most recent first within a
// shard, under the exclusive table lock. fn must not call back into the
// table.
func (t *Table) Range(fn func(key, value string) bool) error {
	if t.closed.Load() {
		return domain.ErrNotInitialized
	}
	t.m.Range(fn)
	return nil
}

// Snapshot returns a consistent copy of every entry in Range order.
func (t *Table) Snapshot() ([]domain.Entry, error) {
	if t.closed.Load() {
		return nil, domain.ErrNotInitialized
	}
	items := t.m.Items()
	entries := make([]domain.Entry, len(items))
	for i, it := range items {
		entries[i] = domain.Entry{Key: it.Key, Value: it.Value}
	}
	return entries, nil
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	if t.closed.Load() {
		return 0
	}
	return t.m.Count()
}

// Stats returns the entry count of every shard.
func (t *Table) Stats() []cmap.ShardStats {
	return t.m.Stats()
}

// Close tears the table down. It waits for in-flight batches, drops all
// entries, and makes every later call fail with ErrNotInitialized. Only
// the first of several concurrent calls returns nil.
func (t *Table) Close() error {
	var first bool
	t.m.Exclusive(func() {
		first = t.closed.CompareAndSwap(false, true)
	})
	if !first {
		return domain.ErrNotInitialized
	}
	t.m.Clear()
	return nil
}

// Closed reports whether Close has been called.
func (t *Table) Closed() bool {
	return t.closed.Load()
}
