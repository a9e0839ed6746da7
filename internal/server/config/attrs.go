package config

// LogAttrs returns the effective configuration as logger key/value
// pairs.
func LogAttrs(cfg *ServerConfig) []any {
	return []any{
		"jobs_dir", cfg.Jobs.Dir,
		"workers", cfg.Jobs.Workers,
		"max_backups", cfg.Backup.Max,
		"register_pipe", cfg.Server.Pipe,
		"max_sessions", cfg.Server.Sessions.Max,
		"max_session_keys", cfg.Server.Sessions.Keys,
		"notify_queue", cfg.Server.Sessions.Queue,
		"request_rate", cfg.Server.Sessions.Rate,
		"admin_addr", cfg.Server.Admin.Addr,
		"log_level", cfg.Log.Level,
	}
}
