package benchmark

import (
	"io"
	"strings"
	"testing"

	"github.com/yndnr/kvs-go/internal/core/domain"
	"github.com/yndnr/kvs-go/internal/job"
	"github.com/yndnr/kvs-go/internal/storage/memory"
	"github.com/yndnr/kvs-go/internal/telemetry/logger"
)

// BenchmarkTableWrite measures single-key writes on a prefilled table.
func BenchmarkTableWrite(b *testing.B) {
	runWithKeyCounts(b, KeyCounts, func(b *testing.B, count int) {
		kvs := newKVS()
		keys := prefillKVS(b, kvs, count)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			k := keys[i%len(keys)]
			if err := kvs.Write([]string{k}, []string{"x"}); err != nil {
				b.Fatal(err)
			}
		}
		b.StopTimer()
		reportMemory(b, "mem")
	})
}

// BenchmarkTableReadBatch measures ten-key reads.
func BenchmarkTableReadBatch(b *testing.B) {
	runWithKeyCounts(b, KeyCounts, func(b *testing.B, count int) {
		kvs := newKVS()
		keys := prefillKVS(b, kvs, count)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			start := (i * 10) % (len(keys) - 10)
			if err := kvs.Read(keys[start:start+10], io.Discard); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkTableParallel mixes reads and writes from concurrent goroutines.
func BenchmarkTableParallel(b *testing.B) {
	kvs := newKVS()
	keys := prefillKVS(b, kvs, 10000)

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			k := keys[i%len(keys)]
			if i%4 == 0 {
				_ = kvs.Write([]string{k}, []string{"y"})
			} else {
				_ = kvs.Read([]string{k}, io.Discard)
			}
			i++
		}
	})
}

// BenchmarkTableShow measures the full-table dump.
func BenchmarkTableShow(b *testing.B) {
	runWithKeyCounts(b, SmallKeyCounts, func(b *testing.B, count int) {
		kvs := newKVS()
		prefillKVS(b, kvs, count)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if err := kvs.Show(io.Discard); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkShardIndex measures key to shard mapping.
func BenchmarkShardIndex(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		memory.ShardIndex(benchKey(i))
	}
}

// BenchmarkJobExecute runs a short script through the job runner.
func BenchmarkJobExecute(b *testing.B) {
	script := strings.Join([]string{
		"WRITE [(a,1)(b,2)(c,3)]",
		"READ [a,b,c,z]",
		"DELETE [b,z]",
		"SHOW",
	}, "\n") + "\n"

	kvs := newKVS()
	runner := job.NewRunner(kvs, nil, nil, logger.Discard())
	j, _ := domain.NewJob("bench.job")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := runner.Execute(b.Context(), j, strings.NewReader(script), io.Discard); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkParseLine measures job command parsing.
func BenchmarkParseLine(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := job.ParseLine("WRITE [(a,1)(b,2)(c,3)(d,4)]"); err != nil {
			b.Fatal(err)
		}
	}
}
