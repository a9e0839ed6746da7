package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/kvs-go/internal/telemetry/logger"
	"github.com/yndnr/kvs-go/internal/telemetry/metric"
)

type fakeStore struct {
	shards []int
}

func (s *fakeStore) Len() int {
	n := 0
	for _, c := range s.shards {
		n += c
	}
	return n
}

func (s *fakeStore) ShardCounts() []int { return s.shards }

type fakeSessions struct {
	count int
	reset int
}

func (s *fakeSessions) Count() int { return s.count }

func (s *fakeSessions) DisconnectAll() int {
	s.reset++
	n := s.count
	s.count = 0
	return n
}

// httptest requests come from 192.0.2.1.
const testClient = "192.0.2.1"

func newTestRouter(sessions *fakeSessions, allow ...string) http.Handler {
	if allow == nil {
		allow = []string{testClient}
	}
	m := metric.NewRegistry()
	m.CommandExecuted("WRITE")
	return NewRouter(&RouterConfig{
		Store:     &fakeStore{shards: []int{2, 0, 1}},
		Sessions:  sessions,
		Metrics:   m.Handler(),
		Logger:    logger.Discard(),
		AllowList: allow,
	})
}

func TestRouter_Healthz(t *testing.T) {
	h := newTestRouter(&fakeSessions{count: 3})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	var body HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Keys != 3 || body.Sessions != 3 {
		t.Errorf("body = %+v", body)
	}
}

func TestRouter_Shards(t *testing.T) {
	h := newTestRouter(&fakeSessions{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/shards", nil))

	var shards []ShardResponse
	if err := json.NewDecoder(rec.Body).Decode(&shards); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []ShardResponse{{0, 2}, {1, 0}, {2, 1}}
	if len(shards) != len(want) {
		t.Fatalf("shards = %+v, want %+v", shards, want)
	}
	for i := range want {
		if shards[i] != want[i] {
			t.Errorf("shards[%d] = %+v, want %+v", i, shards[i], want[i])
		}
	}
}

func TestRouter_Reset(t *testing.T) {
	sessions := &fakeSessions{count: 2}
	h := newTestRouter(sessions)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/reset", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /admin/reset status = %d, want 405", rec.Code)
	}
	if sessions.reset != 0 {
		t.Fatal("GET must not reset sessions")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reset", nil))
	var body ResetResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Disconnected != 2 || sessions.reset != 1 {
		t.Errorf("disconnected = %d, resets = %d", body.Disconnected, sessions.reset)
	}
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(&fakeSessions{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `kvs_jobs_commands_total{command="WRITE"} 1`) {
		t.Errorf("metrics output missing command counter:\n%s", rec.Body.String())
	}
}

func TestRouter_DeniesNonLoopbackByDefault(t *testing.T) {
	h := newTestRouter(&fakeSessions{}, []string{}...)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("loopback status = %d, want 200", rec.Code)
	}
}
