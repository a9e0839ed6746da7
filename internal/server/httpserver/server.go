package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Server represents the admin HTTP server.
type Server struct {
	httpServer *http.Server
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe starts the server. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Serve accepts connections on l. It returns nil after Shutdown.
func (s *Server) Serve(l net.Listener) error {
	err := s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
