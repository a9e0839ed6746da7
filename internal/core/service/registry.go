package service

import (
	"errors"
	"sync"

	"github.com/yndnr/kvs-go/internal/core/domain"
	"github.com/yndnr/kvs-go/internal/telemetry/logger"
	"github.com/yndnr/kvs-go/internal/telemetry/metric"
)

// Default registry limits.
const (
	DefaultMaxSessions = 8
	DefaultNotifyQueue = 64
)

// RegistryConfig bounds the registry.
type RegistryConfig struct {
	// MaxSessions is the number of concurrently connected clients.
	MaxSessions int
	// MaxKeys bounds each session's subscription set.
	MaxKeys int
	// NotifyQueue is the per-session notification buffer.
	NotifyQueue int
}

func (c *RegistryConfig) setDefaults() {
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = domain.MaxSubscriptions
	}
	if c.NotifyQueue <= 0 {
		c.NotifyQueue = DefaultNotifyQueue
	}
}

// Subscriber is a registered session and its notification queue.
type Subscriber struct {
	session *domain.ClientSession
	outbox  chan domain.Notification
	done    chan struct{}
	dropped int
}

// ID returns the session ID.
func (s *Subscriber) ID() string {
	return s.session.ID
}

// Session returns the session state. Its subscription set is guarded by
// the registry; read it through Registry.Keys.
func (s *Subscriber) Session() *domain.ClientSession {
	return s.session
}

// Notifications returns the queue drained by the session's writer.
// It is never closed; select on Done as well.
func (s *Subscriber) Notifications() <-chan domain.Notification {
	return s.outbox
}

// Done is closed when the session is removed from the registry.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Registry tracks connected sessions and their subscriptions.
//
// One mutex guards the session table, the key index and the active
// count together.
type Registry struct {
	cfg     RegistryConfig
	metrics *metric.Registry
	logger  logger.Logger

	mu       sync.Mutex
	sessions map[string]*Subscriber
	byKey    map[string]map[string]*Subscriber
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryMetrics sets the metrics recorder.
func WithRegistryMetrics(m *metric.Registry) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l logger.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig, opts ...RegistryOption) *Registry {
	cfg.setDefaults()
	r := &Registry{
		cfg:      cfg,
		logger:   logger.Default(),
		sessions: make(map[string]*Subscriber),
		byKey:    make(map[string]map[string]*Subscriber),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register reserves a slot for a new client. It fails with
// ErrSessionLimitReached when MaxSessions clients are connected.
func (r *Registry) Register(reqPath, respPath, notifyPath string) (*Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.cfg.MaxSessions {
		r.metrics.SessionRejected()
		return nil, domain.ErrSessionLimitReached.WithDetails(reqPath)
	}

	sub := &Subscriber{
		session: domain.NewClientSession(reqPath, respPath, notifyPath, r.cfg.MaxKeys),
		outbox:  make(chan domain.Notification, r.cfg.NotifyQueue),
		done:    make(chan struct{}),
	}
	r.sessions[sub.ID()] = sub
	r.metrics.SessionOpened()
	r.logger.Debug("session registered", "session_id", sub.ID(), "active", len(r.sessions))
	return sub, nil
}

// Subscribe adds key to the session's set. Subscribing twice succeeds.
// The caller checks that the key exists.
func (r *Registry) Subscribe(id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.sessions[id]
	if !ok {
		return domain.ErrUnknownSession.WithDetails(id)
	}
	if err := sub.session.Subscribe(key); err != nil {
		if errors.Is(err, domain.ErrAlreadySubscribed) {
			return nil
		}
		return err
	}

	subs := r.byKey[key]
	if subs == nil {
		subs = make(map[string]*Subscriber)
		r.byKey[key] = subs
	}
	subs[id] = sub
	r.metrics.SubscriptionsChanged(1)
	return nil
}

// Unsubscribe removes key from the session's set. It fails with
// ErrNotSubscribed when the key was not subscribed.
func (r *Registry) Unsubscribe(id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.sessions[id]
	if !ok {
		return domain.ErrUnknownSession.WithDetails(id)
	}
	if err := sub.session.Unsubscribe(key); err != nil {
		return err
	}
	r.unindex(id, key)
	r.metrics.SubscriptionsChanged(-1)
	return nil
}

// Keys returns the session's subscribed keys in lexical order.
func (r *Registry) Keys(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.sessions[id]
	if !ok {
		return nil
	}
	return sub.session.Keys()
}

// Remove drops the session, its subscriptions and its slot, and closes
// its Done channel. It reports whether the session was registered.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(id)
}

// DisconnectAll removes every session and returns how many were removed.
func (r *Registry) DisconnectAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id := range r.sessions {
		if r.removeLocked(id) {
			n++
		}
	}
	if n > 0 {
		r.logger.Info("all sessions disconnected", "count", n)
	}
	return n
}

func (r *Registry) removeLocked(id string) bool {
	sub, ok := r.sessions[id]
	if !ok {
		return false
	}
	keys := sub.session.ClearKeys()
	for _, k := range keys {
		r.unindex(id, k)
	}
	delete(r.sessions, id)
	close(sub.done)
	r.metrics.SessionClosed(len(keys))
	r.logger.Debug("session removed", "session_id", id, "subscriptions", len(keys), "dropped", sub.dropped)
	return true
}

func (r *Registry) unindex(id, key string) {
	subs := r.byKey[key]
	delete(subs, id)
	if len(subs) == 0 {
		delete(r.byKey, key)
	}
}

// Notify queues a change for every subscriber of key. It never blocks:
// a full queue drops the notification.
func (r *Registry) Notify(key, value string, deleted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.byKey[key]
	if len(subs) == 0 {
		return
	}
	n := domain.Notification{Key: key, Value: value, Deleted: deleted}
	for _, sub := range subs {
		select {
		case sub.outbox <- n:
			r.metrics.NotificationQueued(true)
		default:
			sub.dropped++
			r.metrics.NotificationQueued(false)
		}
	}
}

// Count returns the number of connected sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SubscriberCount returns the number of sessions subscribed to key.
func (r *Registry) SubscriberCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey[key])
}

// Dropped returns the notifications dropped for a session.
func (r *Registry) Dropped(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.sessions[id]; ok {
		return sub.dropped
	}
	return 0
}
