// Package config defines the kvs-server configuration.
//
//   - spec.go: ServerConfig and its sections
//   - default.go: default values
//   - verify.go: validation (paths, bounds, addresses)
//   - attrs.go: a flat log view of the effective configuration
//
// Configuration is loaded via internal/infra/confloader with priority
// flag > env (KVS_) > file > default.
package config
