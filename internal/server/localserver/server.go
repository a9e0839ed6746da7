package localserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/yndnr/kvs-go/internal/core/domain"
	"github.com/yndnr/kvs-go/internal/core/service"
	"github.com/yndnr/kvs-go/internal/telemetry/logger"
	"github.com/yndnr/kvs-go/internal/telemetry/metric"
	"github.com/yndnr/kvs-go/pkg/wire"
)

// Store answers key existence for subscriptions.
type Store interface {
	Exists(key string) (bool, error)
}

// Config configures the server.
type Config struct {
	// RegisterPath is the registration FIFO, created if missing.
	RegisterPath string

	// RequestRate limits requests per second per session; 0 disables.
	RequestRate float64

	// RequestBurst is the limiter burst size.
	RequestBurst int
}

// Server accepts client sessions on a registration FIFO.
type Server struct {
	cfg      Config
	store    Store
	registry *service.Registry
	opener   wire.Opener
	metrics  *metric.Registry
	logger   logger.Logger

	running atomic.Bool
	wg      sync.WaitGroup

	mu       sync.Mutex
	listener io.Closer
}

// Option configures a Server.
type Option func(*Server)

// WithOpener replaces the FIFO opener.
func WithOpener(o wire.Opener) Option {
	return func(s *Server) {
		s.opener = o
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new server.
func New(cfg Config, store Store, registry *service.Registry, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		registry: registry,
		opener:   wire.FIFOOpener{},
		logger:   logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe creates and opens the registration FIFO and serves it
// until Shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := wire.EnsureFIFO(s.cfg.RegisterPath); err != nil {
		return domain.ErrChannel.WithCause(err)
	}
	f, err := wire.OpenListen(s.cfg.RegisterPath)
	if err != nil {
		return domain.ErrChannel.WithCause(fmt.Errorf("open registration pipe: %w", err))
	}
	s.logger.Info("listening for clients", "register_pipe", s.cfg.RegisterPath)
	return s.Serve(ctx, f)
}

// Serve reads registration messages from r until it is closed by
// Shutdown. Malformed messages are logged and skipped.
func (s *Server) Serve(ctx context.Context, r io.ReadCloser) error {
	s.mu.Lock()
	s.listener = r
	s.running.Store(true)
	s.mu.Unlock()

	br := bufio.NewReader(r)
	for {
		line, err := wire.ReadLine(br)
		switch {
		case errors.Is(err, wire.ErrLineTooLong):
			s.logger.Warn("registration rejected", "error", domain.ErrMalformedRequest.WithCause(err))
			continue
		case err != nil && !errors.Is(err, io.EOF):
			if !s.running.Load() {
				return nil
			}
			return domain.ErrChannel.WithCause(err)
		}

		if line != "" {
			s.register(ctx, line)
		}
		if err != nil {
			// Every writer has gone. A FIFO opened read-write never
			// reports EOF, so only in-memory listeners get here.
			return nil
		}
	}
}

func (s *Server) register(ctx context.Context, line string) {
	req, err := wire.ParseConnect(line)
	if err != nil {
		s.logger.Warn("registration rejected", "error", domain.ErrMalformedRequest.WithCause(err))
		return
	}

	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return
	}
	sub, regErr := s.registry.Register(req.RequestPath, req.ResponsePath, req.NotifyPath)
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.RequestHandled(wire.OpName(wire.OpConnect), regErr == nil)
	if regErr != nil {
		s.logger.Warn("client rejected", "request_pipe", req.RequestPath, "error", regErr)
	}

	go func() {
		defer s.wg.Done()
		s.serveClient(ctx, req, sub)
	}()
}

// Reset disconnects every client while the server keeps accepting new
// ones.
func (s *Server) Reset() int {
	n := s.registry.DisconnectAll()
	s.logger.Info("sessions reset", "disconnected", n)
	return n
}

// Shutdown stops accepting clients, disconnects every session and waits
// for their handlers to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	var closeErr error
	s.mu.Lock()
	s.running.Store(false)
	if s.listener != nil {
		closeErr = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()

	s.registry.DisconnectAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}
