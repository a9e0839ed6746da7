// Package snapshot writes point-in-time backups of the key-value table.
//
// A backup takes a consistent copy of the table, then writes it in the
// background to "<job stem>-<n>.bck" next to the job file, via a temp
// file and rename. A weighted semaphore bounds concurrent writers; a
// caller asking for a backup at the cap blocks until a slot frees.
package snapshot
