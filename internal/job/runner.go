package job

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yndnr/kvs-go/internal/core/domain"
	"github.com/yndnr/kvs-go/internal/telemetry/logger"
	"github.com/yndnr/kvs-go/internal/telemetry/metric"
)

// Store is the part of the operation layer a job drives.
type Store interface {
	Write(keys, values []string) error
	Read(keys []string, w io.Writer) error
	Delete(keys []string, w io.Writer) error
	Show(w io.Writer) error
}

// Backuper starts a backup of the store for a job.
type Backuper interface {
	Backup(ctx context.Context, job *domain.Job) (string, error)
}

// Runner executes job files.
type Runner struct {
	store   Store
	backups Backuper
	metrics *metric.Registry
	logger  logger.Logger
}

// NewRunner creates a runner. backups may be nil, in which case BACKUP
// commands are logged and skipped.
func NewRunner(store Store, backups Backuper, m *metric.Registry, l logger.Logger) *Runner {
	if l == nil {
		l = logger.Default()
	}
	return &Runner{
		store:   store,
		backups: backups,
		metrics: m,
		logger:  l,
	}
}

// Run executes every command of job, writing results to its output
// file. It returns an error only when the job's files cannot be opened
// or written, or ctx is cancelled; per-command failures are logged.
func (r *Runner) Run(ctx context.Context, job *domain.Job) error {
	in, err := os.Open(job.Path)
	if err != nil {
		return fmt.Errorf("open job: %w", err)
	}
	defer in.Close()

	out, err := os.Create(job.OutputPath)
	if err != nil {
		return fmt.Errorf("create job output: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	runErr := r.Execute(ctx, job, in, w)
	if err := w.Flush(); err != nil && runErr == nil {
		runErr = fmt.Errorf("write job output: %w", err)
	}
	return runErr
}

// Execute runs the commands read from in, writing results to w.
func (r *Runner) Execute(ctx context.Context, job *domain.Job, in io.Reader, w io.Writer) error {
	ctx = logger.WithLogger(ctx, r.logger)
	if logger.JobFromContext(ctx) == "" {
		ctx = logger.WithJob(ctx, job.Path)
	}
	log := logger.L(ctx)
	p := NewParser(in)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cmd, err := p.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !errors.Is(err, domain.ErrMalformedCommand) {
			return fmt.Errorf("read job: %w", err)
		}
		if err != nil {
			log.Warn("invalid command, see HELP for usage", "line", cmd.Line, "error", err)
			r.metrics.CommandExecuted(cmd.Kind.String())
			if _, err := io.WriteString(w, InvalidCommandLine); err != nil {
				return fmt.Errorf("write job output: %w", err)
			}
			continue
		}
		if cmd.Kind == KindEmpty {
			continue
		}

		r.metrics.CommandExecuted(cmd.Kind.String())
		if err := r.exec(ctx, job, cmd, w); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("command failed", "line", cmd.Line, "command", cmd.Kind.String(), "error", err)
			if line := failureLine(cmd.Kind, err); line != "" {
				if _, err := io.WriteString(w, line); err != nil {
					return fmt.Errorf("write job output: %w", err)
				}
			}
		}
	}
}

func (r *Runner) exec(ctx context.Context, job *domain.Job, cmd Command, w io.Writer) error {
	switch cmd.Kind {
	case KindWrite:
		return r.store.Write(cmd.Keys, cmd.Values)

	case KindRead:
		return r.store.Read(cmd.Keys, w)

	case KindDelete:
		return r.store.Delete(cmd.Keys, w)

	case KindShow:
		return r.store.Show(w)

	case KindWait:
		return wait(ctx, cmd.Delay)

	case KindBackup:
		if r.backups == nil {
			return domain.ErrBackupFailed.WithDetails("backups disabled")
		}
		path, err := r.backups.Backup(ctx, job)
		if err != nil {
			return err
		}
		r.logger.Debug("backup started", "job", job.Path, "path", path)
		return nil

	case KindHelp:
		_, err := io.WriteString(w, Usage)
		return err
	}
	return domain.ErrMalformedCommand.WithDetails(cmd.Kind.String())
}

// InvalidCommandLine is written to the job output for a line that does
// not parse.
const InvalidCommandLine = "Invalid command. See HELP for usage\n"

// failureLine returns the job output line for a command the store
// refused. Output errors are not echoed into the output they failed on.
func failureLine(kind Kind, err error) string {
	if domain.GetErrorCode(err) == "" {
		return ""
	}
	switch kind {
	case KindWrite:
		return "Failed to write pair\n"
	case KindRead:
		return "Failed to read pair\n"
	case KindDelete:
		return "Failed to delete pair\n"
	case KindBackup:
		return "Failed to perform backup\n"
	}
	return ""
}

// wait suspends the calling worker only.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
