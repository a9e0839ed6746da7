package logger

import "context"

type contextKey string

const (
	loggerKey    contextKey = "kvs.logger"
	sessionIDKey contextKey = "kvs.session_id"
	jobKey       contextKey = "kvs.job"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithSessionID adds a client session ID to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the client session ID from context.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// WithJob adds the path of the job being executed to the context.
func WithJob(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, jobKey, path)
}

// JobFromContext extracts the job path from context.
func JobFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(jobKey).(string); ok {
		return p
	}
	return ""
}

// L is a shorthand for FromContext that also adds the session ID and
// job path carried by ctx.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)

	if id := SessionIDFromContext(ctx); id != "" {
		l = l.With("session_id", id)
	}
	if job := JobFromContext(ctx); job != "" {
		l = l.With("job", job)
	}

	return l
}
