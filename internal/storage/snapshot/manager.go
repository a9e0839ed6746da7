package snapshot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yndnr/kvs-go/internal/core/domain"
	"github.com/yndnr/kvs-go/internal/telemetry/logger"
	"github.com/yndnr/kvs-go/internal/telemetry/metric"
)

// DefaultMaxBackups is used when Config.MaxBackups is not positive.
const DefaultMaxBackups = 1

// Source provides the consistent copy of the table to back up.
type Source interface {
	Snapshot() ([]domain.Entry, error)
}

// Config configures the backup manager.
type Config struct {
	// MaxBackups bounds concurrently running backup writers.
	MaxBackups int

	// Sync flushes each backup file to disk before renaming it.
	Sync bool
}

// Manager runs backups with bounded concurrency.
type Manager struct {
	cfg     Config
	source  Source
	sem     *semaphore.Weighted
	metrics *metric.Registry
	logger  logger.Logger

	// writeFile is replaced in tests.
	writeFile func(path string, entries []domain.Entry) error

	wg       sync.WaitGroup
	inFlight atomic.Int64
	failed   atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metric.Registry) Option {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(mgr *Manager) {
		if l != nil {
			mgr.logger = l
		}
	}
}

// NewManager creates a backup manager reading from source.
func NewManager(cfg Config, source Source, opts ...Option) *Manager {
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}
	m := &Manager{
		cfg:    cfg,
		source: source,
		sem:    semaphore.NewWeighted(int64(cfg.MaxBackups)),
		logger: logger.Default(),
	}
	m.writeFile = m.write
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backup copies the table and starts writing the job's next backup
// file in the background. It blocks while MaxBackups writers are
// running and returns once the copy is taken. A failed write is logged
// and counted; it does not fail the job.
func (m *Manager) Backup(ctx context.Context, job *domain.Job) (string, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("snapshot: wait for backup slot: %w", err)
	}

	entries, err := m.source.Snapshot()
	if err != nil {
		m.sem.Release(1)
		return "", domain.ErrBackupFailed.WithCause(err)
	}

	_, path := job.NextBackup()

	m.wg.Add(1)
	m.inFlight.Add(1)
	m.metrics.BackupStarted()
	go func() {
		defer m.wg.Done()
		defer m.sem.Release(1)

		start := time.Now()
		err := m.writeFile(path, entries)
		m.inFlight.Add(-1)
		m.metrics.BackupFinished(err, time.Since(start))
		if err != nil {
			m.failed.Add(1)
			m.logger.Error("backup failed",
				"path", path,
				"error", domain.ErrBackupFailed.WithCause(err))
			return
		}
		m.logger.Debug("backup written", "path", path, "entries", len(entries))
	}()

	return path, nil
}

// write stores entries as "(key, value)" lines via a temp file.
func (m *Manager) write(path string, entries []domain.Entry) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	w := bufio.NewWriter(file)
	for _, e := range entries {
		if err := domain.WriteShowLine(w, e.Key, e.Value); err != nil {
			file.Close()
			return fmt.Errorf("write entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if m.cfg.Sync {
		if err := file.Sync(); err != nil {
			file.Close()
			return fmt.Errorf("sync: %w", err)
		}
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// InFlight returns the number of running backup writers.
func (m *Manager) InFlight() int {
	return int(m.inFlight.Load())
}

// Failed returns the number of backups that could not be written.
func (m *Manager) Failed() int {
	return int(m.failed.Load())
}

// Wait blocks until every started backup writer has finished or ctx
// is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ============================================================================
// Backup files
// ============================================================================

// FileName returns the name of a job's n-th backup.
func FileName(jobPath string, n int) string {
	return filepath.Base(domain.BackupPath(jobPath, n))
}

// Info describes a backup file on disk.
type Info struct {
	Path  string
	Seq   int
	Size  int64
	MTime time.Time
}

// List returns the backups of the job with the given stem in dir,
// ordered by sequence number.
func List(dir, stem string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read dir: %w", err)
	}

	prefix := stem + "-"
	var infos []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, domain.BackupExtension) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), domain.BackupExtension))
		if err != nil || seq <= 0 {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Path:  filepath.Join(dir, name),
			Seq:   seq,
			Size:  fi.Size(),
			MTime: fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Seq < infos[j].Seq
	})
	return infos, nil
}

// ErrCorrupt is returned by Load for a line that is not "(key, value)".
var ErrCorrupt = errors.New("snapshot: malformed backup line")

// Load reads the entries of a backup file in file order.
func Load(path string) ([]domain.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []domain.Entry
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		e, ok := domain.ParseShowLine(sc.Text())
		if !ok {
			return nil, fmt.Errorf("%w: line %d", ErrCorrupt, line)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
