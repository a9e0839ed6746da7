package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/yndnr/kvs-go/internal/telemetry/logger"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Handler handles graceful shutdown and reset signals.
type Handler struct {
	timeout time.Duration
	logger  logger.Logger

	mu     sync.Mutex
	hooks  []hook
	resets []func()

	sigs        chan os.Signal
	trigger     chan struct{}
	triggerOnce sync.Once
	done        chan struct{}
}

// NewHandler creates a new shutdown handler.
func NewHandler(timeout time.Duration, l logger.Logger) *Handler {
	if l == nil {
		l = logger.Default()
	}
	return &Handler{
		timeout: timeout,
		logger:  l,
		sigs:    make(chan os.Signal, 4),
		trigger: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook{name: name, fn: fn})
}

// OnReset registers a function run on SIGUSR1.
func (h *Handler) OnReset(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resets = append(h.resets, fn)
}

// Trigger starts shutdown without a signal.
func (h *Handler) Trigger() {
	h.triggerOnce.Do(func() { close(h.trigger) })
}

// Wait blocks until a termination signal, Trigger or the end of ctx,
// then runs the shutdown hooks. All hooks run; their errors are joined.
func (h *Handler) Wait(ctx context.Context) error {
	signal.Notify(h.sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(h.sigs)

	reason := h.waitForStop(ctx)
	h.logger.Info("shutting down", "reason", reason)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := slices.Clone(h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		start := time.Now()
		if err := hooks[i].fn(shutdownCtx); err != nil {
			h.logger.Error("shutdown hook failed", "hook", hooks[i].name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
			continue
		}
		h.logger.Debug("shutdown hook done", "hook", hooks[i].name, "elapsed", time.Since(start))
	}

	close(h.done)
	return errors.Join(errs...)
}

func (h *Handler) waitForStop(ctx context.Context) string {
	for {
		select {
		case sig := <-h.sigs:
			if sig == syscall.SIGUSR1 {
				h.reset()
				continue
			}
			return sig.String()
		case <-h.trigger:
			return "triggered"
		case <-ctx.Done():
			return ctx.Err().Error()
		}
	}
}

func (h *Handler) reset() {
	h.mu.Lock()
	resets := slices.Clone(h.resets)
	h.mu.Unlock()

	h.logger.Info("reset requested")
	for _, fn := range resets {
		fn()
	}
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
