package config

import "time"

// ServerConfig is the root configuration for kvs-server.
type ServerConfig struct {
	Jobs   JobsSection   `koanf:"jobs"`
	Backup BackupSection `koanf:"backup"`
	Server ServerSection `koanf:"server"`
	Log    LogSection    `koanf:"log"`
}

// JobsSection configures the job worker pool.
type JobsSection struct {
	// Dir holds the .job files; outputs are written next to them.
	Dir string `koanf:"dir"`

	// Workers is the maximum number of jobs run concurrently.
	Workers int `koanf:"workers"`
}

// BackupSection configures BACKUP snapshots.
type BackupSection struct {
	// Max bounds concurrently running backup writers.
	Max int `koanf:"max"`

	// Sync fsyncs backup files before renaming them into place.
	Sync bool `koanf:"sync"`
}

// ServerSection configures the client-facing endpoints.
type ServerSection struct {
	// Pipe is the registration FIFO clients connect through.
	Pipe string `koanf:"pipe"`

	Sessions SessionsConfig `koanf:"sessions"`
	Admin    AdminConfig    `koanf:"admin"`

	// Shutdown bounds graceful shutdown.
	Shutdown time.Duration `koanf:"shutdown"`
}

// SessionsConfig bounds client sessions.
type SessionsConfig struct {
	// Max is the number of concurrently connected clients.
	Max int `koanf:"max"`

	// Keys is the number of keys one session may subscribe to.
	Keys int `koanf:"keys"`

	// Queue is the per-session notification backlog.
	Queue int `koanf:"queue"`

	// Rate limits requests per second per session; 0 disables.
	Rate float64 `koanf:"rate"`

	// Burst is the rate limiter burst.
	Burst int `koanf:"burst"`
}

// AdminConfig configures the admin HTTP endpoint.
type AdminConfig struct {
	// Addr enables the endpoint when set, e.g. "127.0.0.1:9090".
	Addr string `koanf:"addr"`

	// Allow lists client IPs or CIDRs; empty admits loopback only.
	Allow []string `koanf:"allow"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
