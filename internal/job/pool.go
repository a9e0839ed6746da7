package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/kvs-go/internal/core/domain"
	"github.com/yndnr/kvs-go/internal/telemetry/logger"
	"github.com/yndnr/kvs-go/internal/telemetry/metric"
)

// Waiter waits for outstanding background work such as backups.
type Waiter interface {
	Wait(ctx context.Context) error
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	// Dir is the jobs directory.
	Dir string
	// MaxWorkers bounds concurrently running jobs.
	MaxWorkers int
}

// Pool runs every job of a directory on a fixed set of workers.
type Pool struct {
	cfg     PoolConfig
	runner  *Runner
	waiter  Waiter
	metrics *metric.Registry
	logger  logger.Logger

	mu   sync.Mutex
	jobs []*domain.Job
	next int
}

// NewPool creates a pool. waiter, if not nil, is awaited after the
// last job finishes.
func NewPool(cfg PoolConfig, runner *Runner, waiter Waiter, m *metric.Registry, l logger.Logger) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if l == nil {
		l = logger.Default()
	}
	return &Pool{
		cfg:     cfg,
		runner:  runner,
		waiter:  waiter,
		metrics: m,
		logger:  l,
	}
}

// Scan lists the ".job" regular files of dir in name order.
func Scan(dir string) ([]*domain.Job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read jobs dir: %w", err)
	}

	var jobs []*domain.Job
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if j, ok := domain.NewJob(filepath.Join(dir, e.Name())); ok {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].Path < jobs[k].Path
	})
	return jobs, nil
}

// Run executes every job in the directory and then waits for
// outstanding backups. Failing to read the directory is returned;
// a job that cannot be opened is logged and skipped. Workers stop
// claiming jobs once ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	jobs, err := Scan(p.cfg.Dir)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.jobs = jobs
	p.next = 0
	p.mu.Unlock()

	workers := min(p.cfg.MaxWorkers, len(jobs))
	p.logger.Info("running jobs", "dir", p.cfg.Dir, "jobs", len(jobs), "workers", workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		id := i
		g.Go(func() error {
			return p.work(gctx, id)
		})
	}
	runErr := g.Wait()

	if p.waiter != nil {
		if err := p.waiter.Wait(ctx); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// claim hands out the next pending job, or nil when none is left.
func (p *Pool) claim() *domain.Job {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.next < len(p.jobs) {
		j := p.jobs[p.next]
		p.next++
		if j.Claim() == nil {
			return j
		}
	}
	return nil
}

func (p *Pool) work(ctx context.Context, id int) error {
	log := p.logger.With("worker", id)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		j := p.claim()
		if j == nil {
			return nil
		}

		_ = j.Start()
		err := p.runner.Run(logger.WithJob(ctx, j.Path), j)
		_ = j.Finish()

		if err != nil {
			if ctx.Err() != nil {
				p.metrics.JobFinished("cancelled")
				return ctx.Err()
			}
			p.metrics.JobFinished("failed")
			log.Error("job skipped", "job", j.Path, "error", err)
			continue
		}
		p.metrics.JobFinished("ok")
		log.Debug("job done", "job", j.Path)
	}
}

// Jobs returns the jobs of the last Run.
func (p *Pool) Jobs() []*domain.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.Job(nil), p.jobs...)
}
