package domain

import (
	"crypto/rand"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ClientIDPrefix is the prefix for client session IDs.
const ClientIDPrefix = "kvsc-"

// NewClientID generates a new client session ID.
// Format: kvsc-{ulid_lowercase}.
func NewClientID() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return ClientIDPrefix + strings.ToLower(id.String())
}

// ClientSession is the server-side state of one connected client.
//
// A ClientSession is not safe for concurrent use; the session registry
// guards it.
type ClientSession struct {
	// ID is the server-assigned client identity.
	ID string

	// RequestPath, ResponsePath and NotifyPath identify the client's
	// three channels.
	RequestPath  string
	ResponsePath string
	NotifyPath   string

	// ConnectedAt is the handshake time (Unix milliseconds).
	ConnectedAt int64

	maxKeys int
	keys    map[string]struct{}
}

// NewClientSession creates a session with a fresh ID.
// maxKeys bounds the subscription set; values <= 0 use MaxSubscriptions.
func NewClientSession(reqPath, respPath, notifyPath string, maxKeys int) *ClientSession {
	if maxKeys <= 0 {
		maxKeys = MaxSubscriptions
	}
	return &ClientSession{
		ID:           NewClientID(),
		RequestPath:  reqPath,
		ResponsePath: respPath,
		NotifyPath:   notifyPath,
		ConnectedAt:  time.Now().UnixMilli(),
		maxKeys:      maxKeys,
		keys:         make(map[string]struct{}),
	}
}

// Subscribe adds key to the subscription set.
func (s *ClientSession) Subscribe(key string) error {
	if _, ok := s.keys[key]; ok {
		return ErrAlreadySubscribed.WithDetails(key)
	}
	if len(s.keys) >= s.maxKeys {
		return ErrSubscriptionLimit.WithDetails(key)
	}
	s.keys[key] = struct{}{}
	return nil
}

// Unsubscribe removes key from the subscription set.
func (s *ClientSession) Unsubscribe(key string) error {
	if _, ok := s.keys[key]; !ok {
		return ErrNotSubscribed.WithDetails(key)
	}
	delete(s.keys, key)
	return nil
}

// IsSubscribed reports whether key is in the subscription set.
func (s *ClientSession) IsSubscribed(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Keys returns the subscribed keys in lexical order.
func (s *ClientSession) Keys() []string {
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ClearKeys drops every subscription and returns the dropped keys.
func (s *ClientSession) ClearKeys() []string {
	keys := s.Keys()
	s.keys = make(map[string]struct{})
	return keys
}
