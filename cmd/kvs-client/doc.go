// Package main provides the entry point for kvs-client.
//
// Usage:
//
//	kvs-client [--pipe-dir DIR] <client_unique_id> <register_pipe_path>
//	kvs-client stats --admin 127.0.0.1:9090
//	kvs-client --pipe-dir /run/kvs config init
//
// The session reads SUBSCRIBE [key], UNSUBSCRIBE [key], DELAY <ms> and
// DISCONNECT from stdin and prints notifications as they arrive.
// Defaults for --pipe-dir, --admin and --output come from
// ~/.kvs/client.yaml when present.
package main
