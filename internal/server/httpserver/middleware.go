package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/kvs-go/internal/telemetry/logger"
)

type contextKey string

const (
	// ContextKeyRequestID is the context key for request ID.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyStartTime is the context key for request start time.
	ContextKeyStartTime contextKey = "start_time"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is
// the outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID adds a request ID to each request, keeping one supplied in
// the X-Request-ID header.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
				requestID = "req-" + strings.ToLower(id.String())
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
			ctx = context.WithValue(ctx, ContextKeyStartTime, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover recovers from panics and returns 500 error.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						"request_id", GetRequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					writeError(w, http.StatusInternalServerError, "KVS-SYS-5000", "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog logs every request after it completes.
func AccessLog(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			startTime, _ := r.Context().Value(ContextKeyStartTime).(time.Time)
			attrs := []any{
				"request_id", GetRequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(startTime).Milliseconds(),
				"client_ip", getClientIP(r),
			}

			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Debug("request completed", attrs...)
			}
		})
	}
}

// NetworkACL admits only clients whose address matches allowList
// (single IPs or CIDR blocks). An empty list admits loopback clients.
func NetworkACL(allowList []string, log logger.Logger) Middleware {
	var networks []*net.IPNet
	for _, entry := range allowList {
		if !strings.Contains(entry, "/") {
			if strings.Contains(entry, ":") {
				entry += "/128"
			} else {
				entry += "/32"
			}
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			log.Warn("invalid allowlist entry", "entry", entry, "error", err)
			continue
		}
		networks = append(networks, ipNet)
	}

	allowed := func(ip net.IP) bool {
		if len(networks) == 0 {
			return ip.IsLoopback()
		}
		for _, n := range networks {
			if n.Contains(ip) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := net.ParseIP(getClientIP(r))
			if ip == nil || !allowed(ip) {
				log.Warn("request denied by network ACL", "client_ip", getClientIP(r), "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "KVS-ADMIN-4030", "client not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// GetRequestIDFromContext retrieves the request ID from context.
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}

// getClientIP returns the peer address. Forwarding headers are ignored:
// the admin endpoint is not meant to sit behind a proxy.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
