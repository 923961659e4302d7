package tool

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/retinalogix/release-builder/internal/domain/build"
	"github.com/retinalogix/release-builder/internal/logger"
)

// Command describes one external tool invocation.
type Command struct {
	// Path is the tool executable, resolved via PATH when not absolute.
	Path string
	// Args are the tool arguments, excluding the executable itself.
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Timeout bounds the invocation; zero or negative means no bound.
	Timeout time.Duration
}

// Result captures the observable outcome of a finished invocation.
// It is populated even on failure so diagnostics survive into the report.
type Result struct {
	// ExitCode is the process exit code, or -1 when the process never completed.
	ExitCode int
	// OutputTail is the trailing portion of the combined stdout and stderr.
	OutputTail string
	// Elapsed is the wall-clock invocation duration.
	Elapsed time.Duration
}

// Invoker runs external tools. The pipeline depends on this interface so the
// two concrete tools can be replaced with doubles in tests.
type Invoker interface {
	Invoke(ctx context.Context, cmd Command) (*Result, error)
}

// ExecInvoker runs tools as subprocesses via os/exec.
type ExecInvoker struct{}

// NewExecInvoker returns an Invoker backed by real subprocesses.
func NewExecInvoker() *ExecInvoker {
	return &ExecInvoker{}
}

// Invoke starts the tool, waits for completion within the bounded time and
// classifies the outcome: a start failure, a timeout (the subprocess is
// terminated, not orphaned), an external cancellation, or a non-zero exit
// carrying the diagnostic tail. The returned Result is non-nil whenever the
// process was started.
func (i *ExecInvoker) Invoke(ctx context.Context, command Command) (*Result, error) {
	runCtx := ctx

	if command.Timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, command.Path, command.Args...)
	cmd.Dir = command.Dir

	// One tail buffer for both streams keeps interleaving intact.
	tail := newTailWriter(maxOutputTailBytes)
	cmd.Stdout = tail
	cmd.Stderr = tail

	logger.DebugKV(ctx, "Invoking external tool", "tool", command.Path, "args", command.Args)

	start := time.Now()

	if err := cmd.Start(); err != nil {
		return nil, &build.ToolInvocationError{Tool: command.Path, Err: err}
	}

	waitErr := cmd.Wait()
	result := &Result{
		ExitCode:   cmd.ProcessState.ExitCode(),
		OutputTail: tail.String(),
		Elapsed:    time.Since(start),
	}

	if waitErr == nil {
		return result, nil
	}

	// The distinction matters downstream: timeouts may be retried,
	// cancellations must skip artifact checks entirely.
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return result, &build.TimeoutError{Tool: command.Path, Timeout: command.Timeout}
	case errors.Is(ctx.Err(), context.Canceled):
		return result, &build.CancelledError{Tool: command.Path}
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return result, &build.ToolExitError{
			Tool:       command.Path,
			ExitCode:   result.ExitCode,
			OutputTail: result.OutputTail,
		}
	}

	return result, &build.ToolInvocationError{Tool: command.Path, Err: waitErr}
}
