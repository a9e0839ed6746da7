package benchmark

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/yndnr/kvs-go/internal/core/service"
	"github.com/yndnr/kvs-go/internal/storage/memory"
)

// KeyCounts defines the table sizes for benchmarking.
var KeyCounts = []int{1000, 10000, 100000}

// SmallKeyCounts for quick benchmarks.
var SmallKeyCounts = []int{100, 1000, 10000}

const keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// benchKey returns a key spread over every shard.
func benchKey(i int) string {
	return fmt.Sprintf("%c%d", keyAlphabet[i%len(keyAlphabet)], i)
}

// prefillKVS writes count keys in batches of ten.
func prefillKVS(b *testing.B, kvs *service.KVS, count int) []string {
	b.Helper()
	keys := make([]string, count)
	for i := range keys {
		keys[i] = benchKey(i)
	}
	for start := 0; start < count; start += 10 {
		end := min(start+10, count)
		batch := keys[start:end]
		values := make([]string, len(batch))
		for i := range values {
			values[i] = "v" + batch[i]
		}
		if err := kvs.Write(batch, values); err != nil {
			b.Fatalf("prefill: %v", err)
		}
	}
	return keys
}

func newKVS(opts ...service.Option) *service.KVS {
	return service.NewKVS(memory.New(), opts...)
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs a benchmark function with various table sizes.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
