// Package store keeps a SQLite history of annotation scans.
//
// Each scan is stored once, keyed by its content-addressed id
// (report.ScanID), together with the run id of the invocation that first
// produced it. Roots, enabled functions, starting points and diagnostics
// live in child tables and keep the order of the report.
//
// Ordering never depends on wall time: scans are listed by seq, child rows
// by their position in the report.
//
// The connection runs in WAL mode with foreign keys enforced and a five
// second busy timeout. Schema upgrades are tracked in PRAGMA user_version.
package store
