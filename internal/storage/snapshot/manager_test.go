package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/kvs-go/internal/core/domain"
	"github.com/yndnr/kvs-go/internal/core/service"
	"github.com/yndnr/kvs-go/internal/storage/memory"
	"github.com/yndnr/kvs-go/internal/telemetry/metric"
)

type staticSource struct {
	entries []domain.Entry
	err     error
}

func (s staticSource) Snapshot() ([]domain.Entry, error) {
	return s.entries, s.err
}

func newJob(t *testing.T, dir, name string) *domain.Job {
	t.Helper()
	job, ok := domain.NewJob(filepath.Join(dir, name))
	if !ok {
		t.Fatalf("NewJob(%q) rejected", name)
	}
	return job
}

func TestManager_BackupWritesFile(t *testing.T) {
	dir := t.TempDir()
	src := staticSource{entries: []domain.Entry{{Key: "b", Value: "2"}, {Key: "a", Value: "1"}}}
	m := NewManager(Config{MaxBackups: 1, Sync: true}, src)
	job := newJob(t, dir, "test.job")

	path, err := m.Backup(context.Background(), job)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if want := filepath.Join(dir, "test-1.bck"); path != want {
		t.Errorf("Backup() path = %q, want %q", path, want)
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if want := "(b, 2)\n(a, 1)\n"; string(data) != want {
		t.Errorf("backup content = %q, want %q", data, want)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 2 || entries[0] != src.entries[0] {
		t.Errorf("Load() = %+v, want %+v", entries, src.entries)
	}
}

func TestManager_BackupMatchesShow(t *testing.T) {
	kvs := service.NewKVS(memory.New())
	if err := kvs.Write([]string{"a", "b", "k-1", "z.9"}, []string{"1", "2", "x", "y"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var show strings.Builder
	if err := kvs.Show(&show); err != nil {
		t.Fatalf("Show() error = %v", err)
	}

	dir := t.TempDir()
	m := NewManager(Config{MaxBackups: 1}, kvs)
	path, err := m.Backup(context.Background(), newJob(t, dir, "show.job"))
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != show.String() {
		t.Errorf("backup content = %q, want SHOW output %q", data, show.String())
	}
}

func TestManager_SequenceAndList(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{MaxBackups: 2}, staticSource{})
	job := newJob(t, dir, "seq.job")

	for i := 0; i < 3; i++ {
		if _, err := m.Backup(context.Background(), job); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
	}
	_ = m.Wait(context.Background())

	infos, err := List(dir, "seq")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("List() = %d backups, want 3", len(infos))
	}
	for i, info := range infos {
		if info.Seq != i+1 || filepath.Base(info.Path) != FileName(job.Path, i+1) {
			t.Errorf("infos[%d] = %+v", i, info)
		}
	}
}

func TestManager_BoundsConcurrency(t *testing.T) {
	const maxBackups = 2
	m := NewManager(Config{MaxBackups: maxBackups}, staticSource{})

	release := make(chan struct{})
	var running, peak atomic.Int64
	m.writeFile = func(string, []domain.Entry) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return nil
	}

	dir := t.TempDir()
	var wg sync.WaitGroup
	for i := 0; i < maxBackups+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Backup(context.Background(), newJob(t, dir, "c.job"))
		}()
	}

	deadline := time.Now().Add(5 * time.Second)
	for m.InFlight() < maxBackups && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	if got := m.InFlight(); got != maxBackups {
		t.Errorf("InFlight() = %d, want %d", got, maxBackups)
	}

	close(release)
	wg.Wait()
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if p := peak.Load(); p > maxBackups {
		t.Errorf("peak concurrent writers = %d, want <= %d", p, maxBackups)
	}
}

func TestManager_BackupHonoursContext(t *testing.T) {
	m := NewManager(Config{MaxBackups: 1}, staticSource{})
	block := make(chan struct{})
	m.writeFile = func(string, []domain.Entry) error {
		<-block
		return nil
	}
	defer close(block)

	dir := t.TempDir()
	if _, err := m.Backup(context.Background(), newJob(t, dir, "x.job")); err != nil {
		t.Fatalf("first Backup() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Backup(ctx, newJob(t, dir, "y.job")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Backup() at cap error = %v, want DeadlineExceeded", err)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	if err := m.Wait(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestManager_FailureIsCounted(t *testing.T) {
	reg := metric.NewRegistry()
	m := NewManager(Config{}, staticSource{}, WithMetrics(reg))
	job := newJob(t, filepath.Join(t.TempDir(), "missing"), "f.job")

	if _, err := m.Backup(context.Background(), job); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	_ = m.Wait(context.Background())

	if m.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", m.Failed())
	}
	if got := testutil.ToFloat64(reg.BackupsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("backup_total{failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(reg.BackupsInFlight); got != 0 {
		t.Errorf("backup_inflight = %v, want 0", got)
	}
}

func TestManager_SourceError(t *testing.T) {
	m := NewManager(Config{}, staticSource{err: domain.ErrNotInitialized})
	_, err := m.Backup(context.Background(), newJob(t, t.TempDir(), "e.job"))
	if !errors.Is(err, domain.ErrBackupFailed) {
		t.Fatalf("Backup() error = %v, want ErrBackupFailed", err)
	}
	// The slot must have been released.
	if _, err := m.Backup(context.Background(), newJob(t, t.TempDir(), "e.job")); !errors.Is(err, domain.ErrBackupFailed) {
		t.Errorf("second Backup() error = %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bck")
	if err := os.WriteFile(path, []byte("(a, 1)\nnot a line\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}
