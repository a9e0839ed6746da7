package service

import (
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/yndnr/kvs-go/internal/core/domain"
	"github.com/yndnr/kvs-go/internal/storage/memory"
	"github.com/yndnr/kvs-go/internal/telemetry/logger"
)

// Notifier receives every successful mutation while the mutated key's
// shard is still locked, so per-key order matches mutation order.
// Implementations must not block and must not call back into KVS.
type Notifier interface {
	Notify(key, value string, deleted bool)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, bool) {}

// KVS executes batch commands against a table.
type KVS struct {
	table    *memory.Table
	notifier Notifier
	logger   logger.Logger
}

// Option configures a KVS.
type Option func(*KVS)

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *KVS) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *KVS) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewKVS creates the operation layer over table.
func NewKVS(table *memory.Table, opts ...Option) *KVS {
	s := &KVS{
		table:    table,
		notifier: nopNotifier{},
		logger:   logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the underlying table.
func (s *KVS) Table() *memory.Table {
	return s.table
}

// ============================================================================
// Batch operations
// ============================================================================

// Write stores values[i] under keys[i] for every i as one batch.
// Later duplicates of a key in the batch win.
func (s *KVS) Write(keys, values []string) error {
	if len(keys) != len(values) {
		return domain.ErrMalformedCommand.WithDetails("keys and values differ in length")
	}
	if err := checkBatch(keys); err != nil {
		return err
	}
	for _, v := range values {
		if err := domain.ValidateToken(v); err != nil {
			return err
		}
	}

	b, err := s.table.Lock(keys)
	if err != nil {
		return err
	}
	defer b.Unlock()

	for i, k := range keys {
		b.Put(k, values[i])
		s.notifier.Notify(k, values[i], false)
	}
	return nil
}

// Read writes "[(k,v)(k2,KVSERROR)...]\n" to w, keys in lexical order.
func (s *KVS) Read(keys []string, w io.Writer) error {
	if err := checkBatch(keys); err != nil {
		return err
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	b, err := s.table.Lock(sorted)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for _, k := range sorted {
		v, ok := b.Get(k)
		if !ok {
			v = domain.MarkerReadMissing
		}
		writePair(&sb, k, v)
	}
	sb.WriteString("]\n")
	b.Unlock()

	_, err = io.WriteString(w, sb.String())
	return err
}

// Delete removes keys in batch order. When some keys were absent it
// writes "[(k,KVSMISSING)...]\n" to w; otherwise it writes nothing.
func (s *KVS) Delete(keys []string, w io.Writer) error {
	if err := checkBatch(keys); err != nil {
		return err
	}

	b, err := s.table.Lock(keys)
	if err != nil {
		return err
	}

	var missing []string
	for _, k := range keys {
		if b.Remove(k) {
			s.notifier.Notify(k, "", true)
			continue
		}
		missing = append(missing, k)
	}
	b.Unlock()

	if len(missing) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for _, k := range missing {
		writePair(&sb, k, domain.MarkerDeleteMissing)
	}
	sb.WriteString("]\n")
	_, err = io.WriteString(w, sb.String())
	return err
}

// Show writes one "(key, value)\n" line per entry, in shard order and
// most recent first within a shard.
func (s *KVS) Show(w io.Writer) error {
	var sb strings.Builder
	err := s.table.Range(func(k, v string) bool {
		domain.WriteShowLine(&sb, k, v)
		return true
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, sb.String())
	return err
}

// Snapshot returns a consistent copy of every entry in Show order.
func (s *KVS) Snapshot() ([]domain.Entry, error) {
	return s.table.Snapshot()
}

// ============================================================================
// Single-key lookups
// ============================================================================

// Lookup returns the value of key, or ErrNotFound.
func (s *KVS) Lookup(key string) (string, error) {
	if err := domain.ValidateToken(key); err != nil {
		return "", err
	}
	b, err := s.table.Lock([]string{key})
	if err != nil {
		return "", err
	}
	defer b.Unlock()

	v, ok := b.Get(key)
	if !ok {
		return "", domain.ErrNotFound.WithDetails(key)
	}
	return v, nil
}

// Exists reports whether key is present.
func (s *KVS) Exists(key string) (bool, error) {
	_, err := s.Lookup(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Len returns the number of live keys.
func (s *KVS) Len() int {
	return s.table.Len()
}

// ShardCounts returns the live key count of every shard.
func (s *KVS) ShardCounts() []int {
	stats := s.table.Stats()
	counts := make([]int, len(stats))
	for i, st := range stats {
		counts[i] = st.Count
	}
	return counts
}

// Close tears the table down.
func (s *KVS) Close() error {
	if err := s.table.Close(); err != nil {
		return err
	}
	s.logger.Info("key-value table closed")
	return nil
}

func writePair(sb *strings.Builder, key, value string) {
	sb.WriteByte('(')
	sb.WriteString(key)
	sb.WriteByte(',')
	sb.WriteString(value)
	sb.WriteByte(')')
}

func checkBatch(keys []string) error {
	if len(keys) > domain.MaxWriteSize {
		return domain.ErrMalformedCommand.WithDetails("batch larger than 256")
	}
	for _, k := range keys {
		if err := domain.ValidateToken(k); err != nil {
			return err
		}
	}
	return nil
}
