// Package httpserver provides the optional admin HTTP endpoint.
//
// It serves, on a loopback address:
//
//   - GET /metrics: Prometheus metrics
//   - GET /healthz: liveness with key and session counts
//   - GET /debug/shards: per-shard key counts
//   - POST /admin/reset: disconnect every client session
//
// Requests pass through RequestID, Recover, an access log and a
// network ACL that admits loopback clients by default.
package httpserver
