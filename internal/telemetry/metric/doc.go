// Package metric provides Prometheus metrics for the key-value store.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: metric registry, recorder helpers and HTTP handler
//   - collector.go: per-shard entry count collector
//
// Metrics include:
//
//   - Command and job counters
//   - Backup in-flight gauge, outcome counter and duration histogram
//   - Session, subscription and notification counters
//
// All recorder helpers are safe to call on a nil *Registry, so
// components can run without metrics wired.
package metric
