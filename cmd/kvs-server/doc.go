// Package main provides the entry point for kvs-server.
//
// kvs-server runs every .job file of a directory against an in-memory
// key-value store with a bounded worker pool, and serves named-pipe
// client sessions that subscribe to key changes.
//
// Usage:
//
//	kvs-server [--config FILE] [flags] <jobs_dir> <max_threads> <max_backups> <register_pipe>
//
// SIGINT and SIGTERM shut the server down gracefully; SIGUSR1
// disconnects every client session.
package main
