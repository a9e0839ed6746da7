// Package command defines the kvs-client command line.
//
//   - root.go: the application, flags and the interactive session
//   - admin.go: stats and reset, served by the admin HTTP endpoint
//   - config.go: show or write the client configuration file
package command
