// Package history persists pipeline runs and their per-stage results to a
// local SQLite database, so past builds can be inspected with the history
// subcommand. The database is an append-only log; nothing in the pipeline
// reads it back for decision-making.
package history
