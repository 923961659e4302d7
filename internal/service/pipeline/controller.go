package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/retinalogix/release-builder/internal/config"
	"github.com/retinalogix/release-builder/internal/domain/build"
	"github.com/retinalogix/release-builder/internal/logger"
	"github.com/retinalogix/release-builder/internal/tool"
)

// Controller sequences the pipeline stages with hard dependency ordering:
// the package stage never starts unless the freeze stage succeeded and its
// artifact is verified present.
type Controller struct {
	cfg        *config.Config
	invoker    tool.Invoker
	skipFreeze bool
	dryRun     bool
}

// NewController creates a controller over the given configuration and invoker.
func NewController(cfg *config.Config, invoker tool.Invoker, skipFreeze, dryRun bool) *Controller {
	return &Controller{
		cfg:        cfg,
		invoker:    invoker,
		skipFreeze: skipFreeze,
		dryRun:     dryRun,
	}
}

// frozenExecutablePath is the conventional output location of the freeze stage.
func frozenExecutablePath(cfg *config.Config) string {
	name := build.Target{OutputName: cfg.OutputName}.ExecutableName()

	return filepath.Join(cfg.DistDir, name)
}

// Run drives the state machine Idle -> Validating -> Freezing -> Packaging -> Done,
// with failure edges to the terminal Failed state. It always returns a report;
// the report's Err is nil exactly when the run reached Done.
func (c *Controller) Run(ctx context.Context) *Report {
	report := &Report{
		State:     build.StateIdle,
		StartedAt: time.Now(),
	}

	c.transition(ctx, report, build.StateValidating)

	if validationErr := validateEnvironment(c.cfg, c.skipFreeze); validationErr != nil {
		return c.fail(ctx, report, build.StageValidate, validationErr)
	}

	if c.dryRun {
		return c.finishDryRun(ctx, report)
	}

	frozen, done := c.runFreeze(ctx, report)
	if done {
		return report
	}

	c.transition(ctx, report, build.StatePackaging)

	stage := &packageStage{cfg: c.cfg, invoker: c.invoker}

	var installer *build.InstallerArtifact

	result := c.attemptStage(ctx, func() build.StageResult {
		var stageResult build.StageResult

		stageResult, installer = stage.Run(ctx, frozen)

		return stageResult
	})

	report.Stages = append(report.Stages, result)

	if !result.Success {
		return c.fail(ctx, report, build.StagePackage, result.Err)
	}

	report.InstallerArtifact = installer

	c.transition(ctx, report, build.StateDone)
	report.FinishedAt = time.Now()

	return report
}

// runFreeze performs the freeze stage, or verifies the pre-existing artifact
// when the stage is skipped. The bool result is true when the pipeline is
// finished (the report is terminal) and packaging must not run.
func (c *Controller) runFreeze(ctx context.Context, report *Report) (*build.FreezeArtifact, bool) {
	if c.skipFreeze {
		// Validated already, but the artifact record carries the verified size.
		frozen, err := build.VerifyFreezeArtifact(frozenExecutablePath(c.cfg))
		if err != nil {
			c.fail(ctx, report, build.StageFreeze, err)

			return nil, true
		}

		logger.InfoKV(ctx, "Skipping freeze stage, using existing artifact", "path", frozen.Path)

		report.FreezeArtifact = frozen

		return frozen, false
	}

	c.transition(ctx, report, build.StateFreezing)

	stage := &freezeStage{cfg: c.cfg, invoker: c.invoker}

	var frozen *build.FreezeArtifact

	result := c.attemptStage(ctx, func() build.StageResult {
		var stageResult build.StageResult

		stageResult, frozen = stage.Run(ctx)

		return stageResult
	})

	report.Stages = append(report.Stages, result)

	if !result.Success {
		c.fail(ctx, report, build.StageFreeze, result.Err)

		return nil, true
	}

	report.FreezeArtifact = frozen

	return frozen, false
}

// attemptStage runs one stage, retrying only failures the taxonomy marks as
// retryable (start failures and timeouts), with a bounded attempt count and
// a fixed backoff. Deterministic tool failures are never retried.
func (c *Controller) attemptStage(ctx context.Context, run func() build.StageResult) build.StageResult {
	result := run()

	for attempt := 1; attempt <= c.cfg.RetryAttempts && build.IsRetryable(result.Err); attempt++ {
		logger.WarnKV(ctx, "Retrying stage after transient failure",
			"stage", result.Stage, "attempt", attempt, "cause", result.Err)

		select {
		case <-ctx.Done():
			return result
		case <-time.After(c.cfg.RetryBackoff):
		}

		result = run()
	}

	return result
}

// finishDryRun logs the planned invocations without executing anything.
func (c *Controller) finishDryRun(ctx context.Context, report *Report) *Report {
	if !c.skipFreeze {
		planned := (&freezeStage{cfg: c.cfg, invoker: c.invoker}).command()
		logger.InfoKV(ctx, "Dry run: would freeze", "tool", planned.Path, "args", planned.Args)
	}

	planned := (&packageStage{cfg: c.cfg, invoker: c.invoker}).command()
	logger.InfoKV(ctx, "Dry run: would package", "tool", planned.Path, "args", planned.Args)

	// A dry run takes no stage edges; it jumps straight to the terminal state.
	report.State = build.StateDone
	report.FinishedAt = time.Now()

	return report
}

// transition moves the controller to the next state, panicking on an illegal
// edge: a bad transition is a programming error, not a runtime condition.
func (c *Controller) transition(ctx context.Context, report *Report, next build.State) {
	if !report.State.CanTransitionTo(next) {
		logger.Panicf(ctx, "illegal pipeline transition %s -> %s", report.State, next)
	}

	logger.DebugKV(ctx, "Pipeline state change", "from", report.State, "to", next)

	report.State = next
}

// fail moves the report to the terminal Failed state with the given cause.
func (c *Controller) fail(ctx context.Context, report *Report, stage build.Stage, cause error) *Report {
	report.State = build.StateFailed
	report.FailedStage = stage
	report.FinishedAt = time.Now()

	if _, ok := cause.(*build.ValidationError); ok {
		report.Err = cause
	} else {
		report.Err = &StageFailure{Stage: stage, Err: cause}
	}

	logger.ErrorKV(ctx, "Pipeline failed", "stage", stage, "cause", cause)

	return report
}
