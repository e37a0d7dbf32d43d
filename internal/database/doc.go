// Package database is the persistence gateway for photovault.
//
// It owns the SQLite inventory (scan roots, images, per-image metadata
// and analysis rows, the single-user auth tables, and the key/value
// meta table) and is the only component that reads or writes it. All
// other packages operate on rows this package returns and write back
// through it.
//
// The database runs in WAL mode with a busy timeout so that scan-phase
// batch writes and interactive reads can overlap. Batch mutation goes
// through BeginBatch/EndBatch transactions; single-row operations take
// a context and enforce a per-query timeout.
package database
