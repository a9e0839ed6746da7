package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yndnr/kvs-go/internal/telemetry/logger"
)

// Store exposes table statistics.
type Store interface {
	Len() int
	ShardCounts() []int
}

// Sessions exposes the session registry.
type Sessions interface {
	Count() int
	DisconnectAll() int
}

// RouterConfig holds configuration for the admin router.
type RouterConfig struct {
	Store    Store
	Sessions Sessions

	// Metrics serves /metrics; nil leaves the route out.
	Metrics http.Handler

	Logger logger.Logger

	// AllowList restricts clients by address; empty admits loopback only.
	AllowList []string
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Keys     int    `json:"keys"`
	Sessions int    `json:"sessions"`
}

// ShardResponse is one element of GET /debug/shards.
type ShardResponse struct {
	Shard int `json:"shard"`
	Keys  int `json:"keys"`
}

// ResetResponse is the body of POST /admin/reset.
type ResetResponse struct {
	Disconnected int `json:"disconnected"`
}

// NewRouter creates the admin handler with its middleware chain.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	mux := http.NewServeMux()
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Time:     time.Now().UTC().Format(time.RFC3339),
			Keys:     cfg.Store.Len(),
			Sessions: cfg.Sessions.Count(),
		})
	})

	mux.HandleFunc("GET /debug/shards", func(w http.ResponseWriter, r *http.Request) {
		counts := cfg.Store.ShardCounts()
		shards := make([]ShardResponse, len(counts))
		for i, n := range counts {
			shards[i] = ShardResponse{Shard: i, Keys: n}
		}
		writeJSON(w, http.StatusOK, shards)
	})

	mux.HandleFunc("POST /admin/reset", func(w http.ResponseWriter, r *http.Request) {
		n := cfg.Sessions.DisconnectAll()
		log.Info("sessions reset via admin endpoint", "disconnected", n)
		writeJSON(w, http.StatusOK, ResetResponse{Disconnected: n})
	})

	return Chain(mux,
		RequestID(),
		Recover(log),
		AccessLog(log),
		NetworkACL(cfg.AllowList, log),
	)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
