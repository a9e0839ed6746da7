package config

import "time"

// Default configuration values.
const (
	DefaultWorkers    = 4
	DefaultMaxBackups = 1

	DefaultMaxSessions  = 8
	DefaultSessionKeys  = 10
	DefaultNotifyQueue  = 64
	DefaultShutdown     = 10 * time.Second
	DefaultRequestBurst = 16

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default server configuration. Jobs.Dir and
// Server.Pipe have no default and must be supplied.
func Default() *ServerConfig {
	return &ServerConfig{
		Jobs: JobsSection{
			Workers: DefaultWorkers,
		},
		Backup: BackupSection{
			Max: DefaultMaxBackups,
		},
		Server: ServerSection{
			Sessions: SessionsConfig{
				Max:   DefaultMaxSessions,
				Keys:  DefaultSessionKeys,
				Queue: DefaultNotifyQueue,
				Burst: DefaultRequestBurst,
			},
			Shutdown: DefaultShutdown,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
