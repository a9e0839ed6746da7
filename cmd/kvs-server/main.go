package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yndnr/kvs-go/internal/core/service"
	"github.com/yndnr/kvs-go/internal/infra/buildinfo"
	"github.com/yndnr/kvs-go/internal/infra/confloader"
	"github.com/yndnr/kvs-go/internal/infra/shutdown"
	"github.com/yndnr/kvs-go/internal/job"
	"github.com/yndnr/kvs-go/internal/server/config"
	"github.com/yndnr/kvs-go/internal/server/httpserver"
	"github.com/yndnr/kvs-go/internal/server/localserver"
	"github.com/yndnr/kvs-go/internal/storage/memory"
	"github.com/yndnr/kvs-go/internal/storage/snapshot"
	"github.com/yndnr/kvs-go/internal/telemetry/logger"
	"github.com/yndnr/kvs-go/internal/telemetry/metric"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "kvs-server",
		Usage:     "in-memory key-value store with a job pool and named-pipe subscriptions",
		ArgsUsage: "<jobs_dir> <max_threads> <max_backups> <register_pipe>",
		Version:   buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file", EnvVars: []string{"KVS_CONFIG"}},
			&cli.StringFlag{Name: "jobs-dir", Usage: "directory of .job files"},
			&cli.IntFlag{Name: "max-threads", Usage: "jobs run concurrently"},
			&cli.IntFlag{Name: "max-backups", Usage: "backups written concurrently"},
			&cli.StringFlag{Name: "register-pipe", Usage: "registration FIFO path"},
			&cli.IntFlag{Name: "max-sessions", Usage: "concurrently connected clients"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "admin HTTP address serving /metrics (disabled when empty)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
		},
		Action: run,
	}
}

// flagValues maps flags and positional arguments to configuration keys.
// Positional arguments win over their flag equivalents.
func flagValues(c *cli.Context) (map[string]any, error) {
	values := map[string]any{
		"jobs.dir":            c.String("jobs-dir"),
		"jobs.workers":        c.Int("max-threads"),
		"backup.max":          c.Int("max-backups"),
		"server.pipe":         c.String("register-pipe"),
		"server.sessions.max": c.Int("max-sessions"),
		"server.admin.addr":   c.String("metrics-addr"),
		"log.level":           c.String("log-level"),
		"log.format":          c.String("log-format"),
	}

	switch c.NArg() {
	case 0:
		return values, nil
	case 4:
	default:
		return nil, fmt.Errorf("usage: %s %s", c.App.Name, c.App.ArgsUsage)
	}

	args := c.Args().Slice()
	threads, err := strconv.Atoi(args[1])
	if err != nil || threads < 1 {
		return nil, fmt.Errorf("max_threads must be a positive integer, got %q", args[1])
	}
	backups, err := strconv.Atoi(args[2])
	if err != nil || backups < 1 {
		return nil, fmt.Errorf("max_backups must be a positive integer, got %q", args[2])
	}
	values["jobs.dir"] = args[0]
	values["jobs.workers"] = threads
	values["backup.max"] = backups
	values["server.pipe"] = args[3]
	return values, nil
}

func run(c *cli.Context) error {
	flags, err := flagValues(c)
	if err != nil {
		return err
	}

	loader := confloader.NewLoader(
		confloader.WithConfigFile(c.String("config")),
		confloader.WithFlags(flags),
	)
	cfg, err := loadConfig(loader)
	if err != nil {
		return err
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log.Info("starting kvs-server", append([]any{"version", buildinfo.Get().Version}, config.LogAttrs(cfg)...)...)

	metrics := metric.NewRegistry()

	registry := service.NewRegistry(service.RegistryConfig{
		MaxSessions: cfg.Server.Sessions.Max,
		MaxKeys:     cfg.Server.Sessions.Keys,
		NotifyQueue: cfg.Server.Sessions.Queue,
	}, service.WithRegistryMetrics(metrics), service.WithRegistryLogger(log.With("component", "registry")))

	kvs := service.NewKVS(memory.New(), service.WithNotifier(registry), service.WithLogger(log.With("component", "kvs")))
	metrics.RegisterStore(kvs.Len, kvs.ShardCounts)

	backups := snapshot.NewManager(snapshot.Config{MaxBackups: cfg.Backup.Max, Sync: cfg.Backup.Sync}, kvs,
		snapshot.WithMetrics(metrics), snapshot.WithLogger(log.With("component", "backup")))

	runner := job.NewRunner(kvs, backups, metrics, log.With("component", "job"))
	pool := job.NewPool(job.PoolConfig{Dir: cfg.Jobs.Dir, MaxWorkers: cfg.Jobs.Workers}, runner, backups, metrics,
		log.With("component", "pool"))

	pipeServer := localserver.New(localserver.Config{
		RegisterPath: cfg.Server.Pipe,
		RequestRate:  cfg.Server.Sessions.Rate,
		RequestBurst: cfg.Server.Sessions.Burst,
	}, kvs, registry, localserver.WithMetrics(metrics), localserver.WithLogger(log.With("component", "localserver")))

	sh := shutdown.NewHandler(cfg.Server.Shutdown, log)
	var g errgroup.Group

	// Hooks run in reverse: admin, watcher, sessions, jobs, backups, table.
	sh.OnShutdown("table", func(context.Context) error {
		return kvs.Close()
	})
	sh.OnShutdown("backups", backups.Wait)

	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	poolDone := make(chan struct{})
	g.Go(func() error {
		defer close(poolDone)
		err := pool.Run(poolCtx)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			sh.Trigger()
			return fmt.Errorf("jobs: %w", err)
		}
		log.Info("all jobs processed", "jobs", len(pool.Jobs()))
		return nil
	})
	sh.OnShutdown("jobs", func(ctx context.Context) error {
		cancelPool()
		select {
		case <-poolDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	g.Go(func() error {
		if err := pipeServer.ListenAndServe(context.Background()); err != nil {
			sh.Trigger()
			return fmt.Errorf("register pipe: %w", err)
		}
		return nil
	})
	sh.OnShutdown("sessions", pipeServer.Shutdown)
	sh.OnReset(func() {
		n := pipeServer.Reset()
		log.Info("client sessions reset", "disconnected", n)
	})

	if path := loader.FilePath(); path != "" {
		if err := watchConfig(loader, path, log, sh); err != nil {
			log.Warn("config hot reload disabled", "error", err)
		}
	}

	if addr := cfg.Server.Admin.Addr; addr != "" {
		if err := startAdmin(&g, sh, addr, cfg.Server.Admin.Allow, metrics, kvs, registry, log); err != nil {
			sh.Trigger()
			log.Error("admin endpoint failed", "error", err)
		}
	}

	shutdownErr := sh.Wait(context.Background())
	if err := errors.Join(g.Wait(), shutdownErr); err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

func loadConfig(loader *confloader.Loader) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// watchConfig re-applies the log level when the config file changes.
func watchConfig(loader *confloader.Loader, path string, log logger.Logger, sh *shutdown.Handler) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return err
	}
	w.OnChange(func(string) {
		fresh := config.Default()
		if err := loader.Reload(fresh); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if _, err := logger.ParseLevel(fresh.Log.Level); err != nil {
			log.Warn("config reload ignored", "error", err)
			return
		}
		logger.SetLevel(fresh.Log.Level)
		log.Info("log level reloaded", "level", logger.GetLevel())
	})
	w.StartAsync()
	sh.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
	return nil
}

func startAdmin(g *errgroup.Group, sh *shutdown.Handler, addr string, allow []string,
	metrics *metric.Registry, kvs *service.KVS, registry *service.Registry, log logger.Logger) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := httpserver.New(addr, httpserver.NewRouter(&httpserver.RouterConfig{
		Store:     kvs,
		Sessions:  registry,
		Metrics:   metrics.Handler(),
		Logger:    log.With("component", "admin"),
		AllowList: allow,
	}))
	g.Go(func() error {
		log.Info("admin endpoint listening", "addr", l.Addr().String())
		if err := srv.Serve(l); err != nil {
			sh.Trigger()
			return fmt.Errorf("admin endpoint: %w", err)
		}
		return nil
	})
	sh.OnShutdown("admin", srv.Shutdown)
	return nil
}
