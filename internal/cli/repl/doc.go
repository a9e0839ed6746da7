// Package repl implements the kvs-client command loop.
//
//   - repl.go: reads SUBSCRIBE, UNSUBSCRIBE, DELAY and DISCONNECT lines
//     and forwards them to the session client
//   - completer.go: command suggestions for mistyped input
package repl
