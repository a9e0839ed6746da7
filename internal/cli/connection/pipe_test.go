//go:build linux || darwin

package connection

import (
	"bufio"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/kvs-go/internal/core/service"
	"github.com/yndnr/kvs-go/internal/server/localserver"
	"github.com/yndnr/kvs-go/internal/storage/memory"
	"github.com/yndnr/kvs-go/internal/telemetry/logger"
	"github.com/yndnr/kvs-go/pkg/wire"
)

type pipeFixture struct {
	dir      string
	register string
	kvs      *service.KVS
	registry *service.Registry
}

func startServer(t *testing.T, maxSessions int) *pipeFixture {
	t.Helper()
	dir := t.TempDir()
	f := &pipeFixture{dir: dir, register: filepath.Join(dir, "register")}

	f.registry = service.NewRegistry(service.RegistryConfig{MaxSessions: maxSessions},
		service.WithRegistryLogger(logger.Discard()))
	f.kvs = service.NewKVS(memory.New(), service.WithNotifier(f.registry))

	srv := localserver.New(localserver.Config{RegisterPath: f.register}, f.kvs, f.registry,
		localserver.WithLogger(logger.Discard()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for !isFIFO(f.register) {
		if time.Now().After(deadline) {
			t.Fatal("registration FIFO not created")
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return f
}

func isFIFO(path string) bool {
	ok, err := wire.IsFIFO(path)
	return err == nil && ok
}

func (f *pipeFixture) client(id string) *PipeClient {
	return NewPipeClient(Config{ID: id, RegisterPath: f.register, PipeDir: f.dir})
}

func TestPipeClient_SubscribeAndNotify(t *testing.T) {
	f := startServer(t, 2)
	if err := f.kvs.Write([]string{"k"}, []string{"v0"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	c := f.client("1")
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	status, err := c.Subscribe("k")
	if err != nil || status != wire.StatusOK {
		t.Fatalf("Subscribe = %c, %v", status, err)
	}
	if status, _ := c.Subscribe("missing"); status != wire.StatusFail {
		t.Errorf("Subscribe(missing) = %c, want 0", status)
	}

	if err := f.kvs.Write([]string{"k"}, []string{"v1"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(c.Notifications()).ReadString('\n')
		lines <- line
	}()
	select {
	case line := <-lines:
		if line != "(k,v1)\n" {
			t.Errorf("notification = %q, want (k,v1)", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
	}

	if status, _ := c.Unsubscribe("k"); status != wire.StatusOK {
		t.Errorf("Unsubscribe = %c, want 1", status)
	}
	if status, err := c.Disconnect(); err != nil || status != wire.StatusOK {
		t.Errorf("Disconnect = %c, %v", status, err)
	}
	if isFIFO(c.Paths().RequestPath) {
		t.Error("client FIFOs not removed")
	}
}

func TestPipeClient_Rejected(t *testing.T) {
	f := startServer(t, 1)

	first := f.client("a")
	if err := first.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer first.Close()

	second := f.client("b")
	if err := second.Connect(); !errors.Is(err, ErrRejected) {
		t.Fatalf("second Connect = %v, want ErrRejected", err)
	}
}

func TestPipeClient_NotConnected(t *testing.T) {
	c := NewPipeClient(Config{ID: "x", RegisterPath: "/nonexistent"})
	if _, err := c.Subscribe("k"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe = %v, want ErrNotConnected", err)
	}
	if c.Notifications() != nil {
		t.Error("Notifications should be nil before Connect")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}
