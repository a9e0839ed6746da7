package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/yndnr/kvs-go/internal/telemetry/logger"
)

func waitResult(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
		return nil
	}
}

func TestHandler_HooksRunInReverseOrder(t *testing.T) {
	h := NewHandler(5*time.Second, logger.Discard())

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		h.OnShutdown("hook", func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(context.Background()) }()
	h.sigs <- syscall.SIGTERM

	if err := waitResult(t, errCh); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("order = %v, want [3 2 1]", order)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Wait completes")
	}
}

func TestHandler_ResetSignalKeepsWaiting(t *testing.T) {
	h := NewHandler(time.Second, logger.Discard())

	var resets atomic.Int32
	resetCh := make(chan struct{}, 2)
	h.OnReset(func() {
		resets.Add(1)
		resetCh <- struct{}{}
	})
	var stopped atomic.Bool
	h.OnShutdown("stop", func(context.Context) error {
		stopped.Store(true)
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(context.Background()) }()

	h.sigs <- syscall.SIGUSR1
	h.sigs <- syscall.SIGUSR1
	for i := 0; i < 2; i++ {
		select {
		case <-resetCh:
		case <-time.After(2 * time.Second):
			t.Fatal("reset hook not called")
		}
	}
	if stopped.Load() {
		t.Fatal("SIGUSR1 must not shut down")
	}

	h.Trigger()
	h.Trigger()
	if err := waitResult(t, errCh); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	if resets.Load() != 2 || !stopped.Load() {
		t.Errorf("resets = %d, stopped = %v", resets.Load(), stopped.Load())
	}
}

func TestHandler_HookErrorsJoined(t *testing.T) {
	h := NewHandler(time.Second, logger.Discard())

	errA := errors.New("a failed")
	errB := errors.New("b failed")
	var ran atomic.Int32
	h.OnShutdown("a", func(context.Context) error { ran.Add(1); return errA })
	h.OnShutdown("ok", func(context.Context) error { ran.Add(1); return nil })
	h.OnShutdown("b", func(context.Context) error { ran.Add(1); return errB })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.Wait(ctx)

	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Wait() error = %v, want both hook errors", err)
	}
	if ran.Load() != 3 {
		t.Errorf("ran %d hooks, want 3", ran.Load())
	}
}

func TestHandler_HookDeadline(t *testing.T) {
	h := NewHandler(20*time.Millisecond, logger.Discard())
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(context.Background()) }()
	h.Trigger()

	if err := waitResult(t, errCh); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}
