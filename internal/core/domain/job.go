package domain

import (
	"path/filepath"
	"strconv"
	"strings"
)

// File extensions used by the job pool.
const (
	JobExtension    = ".job"
	OutputExtension = ".out"
	BackupExtension = ".bck"
)

// JobState is the lifecycle state of a job file.
type JobState int

const (
	JobPending JobState = iota
	JobClaimed
	JobRunning
	JobDone
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobClaimed:
		return "claimed"
	case JobRunning:
		return "running"
	case JobDone:
		return "done"
	default:
		return "unknown"
	}
}

// Job is one command script discovered in the jobs directory.
//
// A Job is owned by the pool cursor until claimed and by exactly one
// worker afterwards; it is not safe for concurrent use.
type Job struct {
	// Path is the input file path (<dir>/<stem>.job).
	Path string

	// OutputPath is the output file path (<dir>/<stem>.out).
	OutputPath string

	// State is the current lifecycle state.
	State JobState

	backups int
}

// NewJob creates a pending job for path. It returns false if path does
// not carry the .job extension or has an empty stem.
func NewJob(path string) (*Job, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, JobExtension) || len(base) == len(JobExtension) {
		return nil, false
	}
	return &Job{
		Path:       path,
		OutputPath: strings.TrimSuffix(path, JobExtension) + OutputExtension,
		State:      JobPending,
	}, true
}

// Stem returns the file name without directory and extension.
func (j *Job) Stem() string {
	return strings.TrimSuffix(filepath.Base(j.Path), JobExtension)
}

// Dir returns the directory holding the job file.
func (j *Job) Dir() string {
	return filepath.Dir(j.Path)
}

// Claim moves the job from pending to claimed.
func (j *Job) Claim() error {
	return j.transition(JobPending, JobClaimed)
}

// Start moves the job from claimed to running.
func (j *Job) Start() error {
	return j.transition(JobClaimed, JobRunning)
}

// Finish moves the job from running to done.
func (j *Job) Finish() error {
	return j.transition(JobRunning, JobDone)
}

func (j *Job) transition(from, to JobState) error {
	if j.State != from {
		return ErrInvalidTransition.WithDetails(j.State.String() + " -> " + to.String())
	}
	j.State = to
	return nil
}

// NextBackup advances the per-job backup counter and returns the path of
// the next backup file: <dir>/<stem>-<n>.bck, n starting at 1.
func (j *Job) NextBackup() (int, string) {
	j.backups++
	return j.backups, BackupPath(j.Path, j.backups)
}

// Backups returns how many backups this job has requested.
func (j *Job) Backups() int {
	return j.backups
}

// BackupPath derives the n-th backup file path for a job file.
func BackupPath(jobPath string, n int) string {
	stem := strings.TrimSuffix(filepath.Base(jobPath), JobExtension)
	return filepath.Join(filepath.Dir(jobPath), stem+"-"+strconv.Itoa(n)+BackupExtension)
}
