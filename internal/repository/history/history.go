package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/retinalogix/release-builder/internal/domain/build"
)

// Run is one recorded pipeline execution.
type Run struct {
	// ID is the database row identifier.
	ID int64
	// StartedAt is when the pipeline began.
	StartedAt time.Time
	// FinishedAt is when the pipeline reached a terminal state.
	FinishedAt time.Time
	// Outcome is the terminal controller state, "done" or "failed".
	Outcome build.State
	// ExitCode is the process exit code the run mapped to.
	ExitCode int
	// Stages are the per-stage results in execution order.
	Stages []build.StageResult
}

// Repository persists pipeline runs to a local SQLite database.
type Repository struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	exit_code   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_stages (
	run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	stage       TEXT NOT NULL,
	success     INTEGER NOT NULL,
	exit_code   INTEGER NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	output_tail TEXT NOT NULL,
	error       TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// Open creates a repository at the given database path and ensures the
// schema exists. Use ":memory:" for tests.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// SQLite allows a single writer; keep the pool honest about it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}

	return nil
}

// RecordRun inserts a run and its stage results in one transaction.
func (r *Repository) RecordRun(ctx context.Context, run *Run) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}

	// Rollback is a no-op after a successful commit.
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, outcome, exit_code) VALUES (?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(run.Outcome),
		run.ExitCode,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("run row id: %w", err)
	}

	for position, stage := range run.Stages {
		stageErr := ""
		if stage.Err != nil {
			stageErr = stage.Err.Error()
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_stages (run_id, position, stage, success, exit_code, elapsed_ms, output_tail, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID,
			position,
			string(stage.Stage),
			stage.Success,
			stage.ExitCode,
			stage.Elapsed.Milliseconds(),
			stage.OutputTail,
			stageErr,
		)
		if err != nil {
			return fmt.Errorf("insert stage result: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit history transaction: %w", err)
	}

	run.ID = runID

	return nil
}

// RecentRuns returns up to limit runs, newest first, with their stage results.
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, outcome, exit_code
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var runs []Run

	for rows.Next() {
		var (
			run                          Run
			startedAt, finished, outcome string
		)

		if err = rows.Scan(&run.ID, &startedAt, &finished, &outcome, &run.ExitCode); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse run start time: %w", err)
		}

		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse run finish time: %w", err)
		}

		run.Outcome = build.State(outcome)
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		if runs[i].Stages, err = r.stagesForRun(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

// stagesForRun loads the stage results of one run in execution order.
func (r *Repository) stagesForRun(ctx context.Context, runID int64) ([]build.StageResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT stage, success, exit_code, elapsed_ms, output_tail, error
		 FROM run_stages WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stage results: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var stages []build.StageResult

	for rows.Next() {
		var (
			stage     build.StageResult
			stageName string
			elapsedMS int64
			errText   string
		)

		err = rows.Scan(&stageName, &stage.Success, &stage.ExitCode, &elapsedMS, &stage.OutputTail, &errText)
		if err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}

		stage.Stage = build.Stage(stageName)
		stage.Elapsed = time.Duration(elapsedMS) * time.Millisecond

		if errText != "" {
			stage.Err = errors.New(errText)
		}

		stages = append(stages, stage)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage results: %w", err)
	}

	return stages, nil
}
