package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/yndnr/kvs-go/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyJobs(&cfg.Jobs); err != nil {
		return err
	}
	if cfg.Backup.Max < 1 {
		return errors.New("backup.max must be at least 1")
	}
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
	return nil
}

func verifyJobs(cfg *JobsSection) error {
	if cfg.Dir == "" {
		return errors.New("jobs.dir is required")
	}
	fi, err := os.Stat(cfg.Dir)
	if err != nil {
		return fmt.Errorf("jobs.dir: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("jobs.dir %s is not a directory", cfg.Dir)
	}
	if cfg.Workers < 1 {
		return errors.New("jobs.workers must be at least 1")
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Pipe == "" {
		return errors.New("server.pipe is required")
	}
	if _, err := os.Stat(filepath.Dir(cfg.Pipe)); err != nil {
		return fmt.Errorf("server.pipe directory: %w", err)
	}

	s := cfg.Sessions
	switch {
	case s.Max < 1:
		return errors.New("server.sessions.max must be at least 1")
	case s.Keys < 1:
		return errors.New("server.sessions.keys must be at least 1")
	case s.Queue < 1:
		return errors.New("server.sessions.queue must be at least 1")
	case s.Rate < 0:
		return errors.New("server.sessions.rate must not be negative")
	case s.Burst < 0:
		return errors.New("server.sessions.burst must not be negative")
	}

	if cfg.Admin.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Admin.Addr); err != nil {
			return fmt.Errorf("server.admin.addr: %w", err)
		}
	}
	if cfg.Shutdown <= 0 {
		return errors.New("server.shutdown must be positive")
	}
	return nil
}
