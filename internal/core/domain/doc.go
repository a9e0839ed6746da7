// Package domain defines the core domain models for the key-value store.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Entry: a stored key-value pair and key/value limits
//   - Job: a command script file and its claim/execution lifecycle
//   - ClientSession: a connected client and its subscribed keys
//   - Errors: Domain-specific error definitions
package domain
