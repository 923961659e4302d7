package build

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError aggregates every environment problem found before any
// side effect. Problems are collected in full, never truncated to the first.
type ValidationError struct {
	// Problems lists each missing tool or input, one human-readable line apiece.
	Problems []string
}

// Error renders all collected problems as a single diagnostic.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("environment validation failed:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// ToolInvocationError indicates the external tool could not be started at all.
type ToolInvocationError struct {
	// Tool is the executable that failed to start.
	Tool string
	// Err is the underlying start failure.
	Err error
}

// Error describes the start failure.
func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("%s failed to start: %v", e.Tool, e.Err)
}

// Unwrap exposes the underlying start failure.
func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}

// ToolExitError indicates the external tool ran and reported failure.
// It carries the diagnostic tail so the final report can show why.
type ToolExitError struct {
	// Tool is the executable that failed.
	Tool string
	// ExitCode is the tool's non-zero exit code.
	ExitCode int
	// OutputTail is the trailing portion of the tool's combined output.
	OutputTail string
}

// Error describes the exit failure without dumping the full output.
func (e *ToolExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
}

// ArtifactMissingError indicates the tool reported success but the expected
// output is absent or empty. It is kept distinct from ToolExitError because
// it signals drift between the tool's contract and its behavior.
type ArtifactMissingError struct {
	// Stage names the step whose artifact is missing.
	Stage Stage
	// Path is the expected artifact location.
	Path string
}

// Error describes the contract violation.
func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("%s stage reported success but produced no artifact at %s", e.Stage, e.Path)
}

// TimeoutError indicates the external tool exceeded its bounded wait and was terminated.
type TimeoutError struct {
	// Tool is the executable that was terminated.
	Tool string
	// Timeout is the configured bound that was exceeded.
	Timeout time.Duration
}

// Error describes the timeout.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not finish within %s and was terminated", e.Tool, e.Timeout)
}

// CancelledError indicates an external cancellation signal terminated the tool.
type CancelledError struct {
	// Tool is the executable that was terminated, empty when no tool was running.
	Tool string
}

// Error describes the cancellation.
func (e *CancelledError) Error() string {
	if e.Tool == "" {
		return "pipeline cancelled"
	}

	return fmt.Sprintf("%s cancelled", e.Tool)
}

// IsRetryable reports whether a stage failure may be retried. Only start
// failures and timeouts qualify: a deterministic build failure will not
// succeed on retry, and a missing artifact means the tool's contract drifted.
func IsRetryable(err error) bool {
	var (
		invocationErr *ToolInvocationError
		timeoutErr    *TimeoutError
	)

	return errors.As(err, &invocationErr) || errors.As(err, &timeoutErr)
}
