package pipeline

import (
	"context"

	"github.com/retinalogix/release-builder/internal/config"
	"github.com/retinalogix/release-builder/internal/domain/build"
	"github.com/retinalogix/release-builder/internal/logger"
	"github.com/retinalogix/release-builder/internal/tool"
)

// packageStage invokes the external installer builder against the installer
// spec and verifies that an installer artifact was produced.
type packageStage struct {
	cfg     *config.Config
	invoker tool.Invoker
}

// command returns the planned packager invocation without executing it.
func (s *packageStage) command() tool.Command {
	return tool.Command{
		Path:    s.cfg.PackagerPath,
		Args:    []string{s.cfg.InstallerSpec},
		Timeout: s.cfg.StageTimeout,
	}
}

// Run executes the package stage. The caller enforces the stage gate, but the
// frozen executable is re-verified here immediately before the tool runs, in
// case it was deleted between stages by an outside process.
func (s *packageStage) Run(ctx context.Context, frozen *build.FreezeArtifact) (build.StageResult, *build.InstallerArtifact) {
	result := build.StageResult{
		Stage:    build.StagePackage,
		ExitCode: -1,
	}

	if _, err := build.VerifyFreezeArtifact(frozen.Path); err != nil {
		result.Err = err

		return result, nil
	}

	logger.InfoKV(ctx, "Building installer",
		"tool", s.cfg.PackagerPath, "spec", s.cfg.InstallerSpec, "output_dir", s.cfg.InstallerOutputDir)

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

	if ctx.Err() != nil {
		result.Err = &build.CancelledError{Tool: s.cfg.PackagerPath}

		return result, nil
	}

	artifact, err := build.VerifyInstallerArtifact(s.cfg.InstallerOutputDir)
	if err != nil {
		result.Err = err

		return result, nil
	}

	result.Success = true

	logger.InfoKV(ctx, "Installer verified", "dir", artifact.Dir, "files", artifact.Files)

	return result, artifact
}
