// Package confloader loads configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Command-line flags (LoadFlags)
//  2. Environment variables (KVS_ prefix; KVS_SERVER_SESSIONS_MAX sets
//     server.sessions.max)
//  3. A YAML configuration file
//  4. The defaults already present in the target struct
//
// Watcher reports changes of the configuration file through fsnotify so
// callers can re-apply reloadable settings such as the log level.
package confloader
