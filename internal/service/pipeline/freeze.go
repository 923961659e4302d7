package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/retinalogix/release-builder/internal/config"
	"github.com/retinalogix/release-builder/internal/domain/build"
	"github.com/retinalogix/release-builder/internal/logger"
	"github.com/retinalogix/release-builder/internal/tool"
)

// freezeStage invokes the external freezing tool to bundle the application
// into a single standalone executable, then verifies the artifact.
type freezeStage struct {
	cfg     *config.Config
	invoker tool.Invoker
}

// target returns the immutable build target for this run.
func (s *freezeStage) target() build.Target {
	return build.Target{
		EntryPoint: s.cfg.EntryPoint,
		OutputName: s.cfg.OutputName,
		SingleFile: true,
		Windowed:   true,
	}
}

// command returns the planned freezer invocation without executing it.
func (s *freezeStage) command() tool.Command {
	target := s.target()

	args := make([]string, 0, 5)
	if target.SingleFile {
		args = append(args, "--onefile")
	}

	if target.Windowed {
		args = append(args, "--noconsole")
	}

	args = append(args, "--name", target.OutputName, target.EntryPoint)

	return tool.Command{
		Path:    s.cfg.FreezerPath,
		Args:    args,
		Timeout: s.cfg.StageTimeout,
	}
}

// artifactPath is the conventional location of the frozen executable.
func (s *freezeStage) artifactPath() string {
	return filepath.Join(s.cfg.DistDir, s.target().ExecutableName())
}

// Run executes the freeze stage. On tool success the artifact is verified to
// exist and be non-empty; a verified artifact is returned alongside the result.
// A stale artifact from a previous run is removed first so that a tool which
// silently produces nothing cannot pass verification on leftovers.
func (s *freezeStage) Run(ctx context.Context) (build.StageResult, *build.FreezeArtifact) {
	result := build.StageResult{
		Stage:    build.StageFreeze,
		ExitCode: -1,
	}

	artifactPath := s.artifactPath()
	if err := os.Remove(artifactPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		result.Err = &build.ToolInvocationError{Tool: s.cfg.FreezerPath, Err: err}

		return result, nil
	}

	logger.InfoKV(ctx, "Freezing application",
		"tool", s.cfg.FreezerPath, "entry_point", s.cfg.EntryPoint, "output", artifactPath)

	invocation, err := s.invoker.Invoke(ctx, s.command())
	if invocation != nil {
		result.ExitCode = invocation.ExitCode
		result.OutputTail = invocation.OutputTail
		result.Elapsed = invocation.Elapsed
	}

	if err != nil {
		result.Err = err

		return result, nil
	}

	// A cancellation racing the tool's exit must not bless a half-written
	// artifact: skip verification entirely.
	if ctx.Err() != nil {
		result.Err = &build.CancelledError{Tool: s.cfg.FreezerPath}

		return result, nil
	}

	artifact, err := build.VerifyFreezeArtifact(artifactPath)
	if err != nil {
		result.Err = err

		return result, nil
	}

	result.Success = true

	logger.InfoKV(ctx, "Frozen executable verified", "path", artifact.Path, "size", artifact.Size)

	return result, artifact
}
