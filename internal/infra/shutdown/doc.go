// Package shutdown coordinates process signals for kvs-server.
//
// SIGINT and SIGTERM (or Trigger, or the Wait context ending) run the
// registered shutdown hooks in reverse registration order under a
// deadline. SIGUSR1 runs the reset hooks and keeps waiting.
package shutdown
