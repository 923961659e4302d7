package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/retinalogix/release-builder/internal/domain/build"
)

// Process exit codes of the release-builder run command.
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitFreeze     = 2
	ExitPackage    = 3
	ExitCancelled  = 4
)

// StageFailure attributes a stage error to the stage it occurred in, so exit
// codes can be derived from the error chain alone.
type StageFailure struct {
	// Stage is the pipeline step that failed.
	Stage build.Stage
	// Err is the classified stage error.
	Err error
}

// Error names the failing stage and the underlying cause.
func (e *StageFailure) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

// Unwrap exposes the classified stage error.
func (e *StageFailure) Unwrap() error {
	return e.Err
}

// Report is the aggregated outcome of one pipeline run.
type Report struct {
	// State is the terminal controller state.
	State build.State
	// FailedStage names the stage a failed run stopped at, empty on success.
	FailedStage build.Stage
	// Err is the failure the run ended with, nil on success.
	Err error
	// Stages holds the per-stage results in execution order.
	Stages []build.StageResult
	// StartedAt and FinishedAt bound the whole run.
	StartedAt  time.Time
	FinishedAt time.Time
	// FreezeArtifact and InstallerArtifact are set when the owning stage verified them.
	FreezeArtifact    *build.FreezeArtifact
	InstallerArtifact *build.InstallerArtifact
}

// Success reports whether the run reached Done.
func (r *Report) Success() bool {
	return r.State == build.StateDone
}

// ExitCode maps the run outcome to the documented process exit codes.
// Timeouts and cancellations take the dedicated code regardless of stage.
func (r *Report) ExitCode() int {
	return ExitCodeFor(r.Err)
}

// ExitCodeFor maps an error returned by Run to a process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		validationErr *build.ValidationError
		timeoutErr    *build.TimeoutError
		cancelledErr  *build.CancelledError
		stageFailure  *StageFailure
	)

	switch {
	case errors.As(err, &timeoutErr), errors.As(err, &cancelledErr):
		return ExitCancelled
	case errors.As(err, &validationErr):
		return ExitValidation
	case errors.As(err, &stageFailure) && stageFailure.Stage == build.StagePackage:
		return ExitPackage
	case errors.As(err, &stageFailure):
		return ExitFreeze
	default:
		// Pre-flight problems outside the stage machinery (config, run marker).
		return ExitValidation
	}
}

// Summary renders the final human-readable report: overall outcome, per-stage
// timing, and the diagnostic excerpt of the failing stage.
func (r *Report) Summary() string {
	var b strings.Builder

	if r.Success() {
		b.WriteString("pipeline succeeded")
	} else {
		fmt.Fprintf(&b, "pipeline failed at %s stage: %v", r.FailedStage, r.Err)
	}

	fmt.Fprintf(&b, " (total %s)", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	for _, stage := range r.Stages {
		status := "ok"
		if !stage.Success {
			status = "failed"
		}

		fmt.Fprintf(&b, "\n  %-8s %-6s exit=%d elapsed=%s",
			stage.Stage, status, stage.ExitCode, stage.Elapsed.Round(time.Millisecond))

		if !stage.Success && stage.OutputTail != "" {
			fmt.Fprintf(&b, "\n    tool output: %s", strings.TrimSpace(stage.OutputTail))
		}
	}

	if r.InstallerArtifact != nil {
		fmt.Fprintf(&b, "\n  installer: %s (%s)",
			r.InstallerArtifact.Dir, strings.Join(r.InstallerArtifact.Files, ", "))
	}

	return b.String()
}
