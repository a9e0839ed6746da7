// Package localserver serves kvs clients over named pipes.
//
// The server reads registration messages from a well-known FIFO. For
// each one it opens the client's request, response and notification
// FIFOs in that order, answers the handshake, and runs a handler that
// owns the three channels until the client disconnects, a channel
// fails, or the server resets or shuts down.
//
// Security:
//
//   - Only local processes with access to the pipe paths can connect
//   - File system permissions on the FIFOs control access
package localserver
