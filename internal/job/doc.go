// Package job runs command scripts against the key-value store.
//
// A job is a ".job" file holding one command per line. Its output goes
// to the sibling ".out" file. The Pool runs a fixed number of workers
// that claim pending jobs from the jobs directory one at a time.
//
//   - parser.go: line tokenizer for the command grammar
//   - runner.go: executes one job file
//   - pool.go: directory scan and worker pool
package job
