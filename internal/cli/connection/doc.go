// Package connection provides the client side of the kvs protocols.
//
//   - pipe.go: named-pipe session client (connect, subscribe,
//     unsubscribe, disconnect, notifications)
//   - http.go: client for the server's optional admin HTTP endpoint
package connection
