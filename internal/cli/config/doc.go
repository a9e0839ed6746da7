// Package config loads the kvs-client configuration file.
//
// The file (~/.kvs/client.yaml by default) supplies fallbacks for the
// client's flags: the directory for session FIFOs, the server's admin
// endpoint and the output format of the admin commands. Flags and
// environment variables take precedence over file values.
package config
