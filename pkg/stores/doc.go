// Package stores persists synthesis run history. The SQLite store
// holds one row per run with the execution order, resource counts,
// registry snapshot, and validation findings, and backs the history
// command.
package stores
