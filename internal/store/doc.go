// Package store persists meeting-request jobs.
//
// Every backend implements the same whole-record contract: Read returns the
// job or job.ErrNotFound, Write replaces it. Three backends are provided:
//
//   - FileStore: one JSON document per job under <dir>/requests/, written
//     atomically via rename.
//   - SQLiteStore: a single requests table in a SQLite database (WAL mode).
//   - MemoryStore: process-local, used by tests and the stdio transport when
//     no data directory is configured.
package store
