package confloader

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/kvs-go/internal/telemetry/logger"
)

func TestWatcher_FileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kvs.yaml")
	other := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(path, []byte("a: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(WithWatcherLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 16)
	w.OnChange(func(p string) { changed <- p })
	w.StartAsync()

	if err := os.WriteFile(other, []byte("b: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("a: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-changed:
		if filepath.Base(p) != "kvs.yaml" {
			t.Errorf("changed = %s, want kvs.yaml", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	// Drain: only the watched file may be reported.
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case p := <-changed:
			if filepath.Base(p) != "kvs.yaml" {
				t.Errorf("unwatched file reported: %s", p)
			}
		case <-deadline:
			return
		}
	}
}

func TestWatcher_WatchNonexistentDir(t *testing.T) {
	w, err := NewWatcher(WithWatcherLogger(logger.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Watch("/nonexistent/dir/kvs.yaml"); err == nil {
		t.Error("Watch() of a missing directory succeeded")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	w, err := NewWatcher(WithWatcherLogger(logger.Discard()))
	if err != nil {
		t.Fatal(err)
	}

	var returned atomic.Bool
	done := make(chan struct{})
	go func() {
		w.Start()
		returned.Store(true)
		close(done)
	}()

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	if !returned.Load() {
		t.Error("Start did not return")
	}
}
