package pipeline

import (
	"context"
	"time"

	"github.com/retinalogix/release-builder/internal/config"
	"github.com/retinalogix/release-builder/internal/logger"
	"github.com/retinalogix/release-builder/internal/repository/history"
	"github.com/retinalogix/release-builder/internal/tool"
)

// Options contains inputs for the pipeline entry point.
// Zero values defer to the configuration file and its defaults.
type Options struct {
	// ConfigPath is an optional path to the settings YAML (defaults to release-builder.yaml).
	ConfigPath string
	// EntryPoint overrides the application source file handed to the freezer.
	EntryPoint string
	// OutputName overrides the frozen executable base name.
	OutputName string
	// InstallerSpec overrides the installer script path.
	InstallerSpec string
	// FreezerPath and PackagerPath override the external tool executables.
	FreezerPath  string
	PackagerPath string
	// TimeoutSeconds overrides the per-stage timeout.
	TimeoutSeconds int
	// SkipFreeze re-packages an existing verified frozen executable.
	SkipFreeze bool
	// DryRun validates the environment and prints planned invocations only.
	DryRun bool
	// Invoker replaces the subprocess invoker, used by tests and watch mode.
	Invoker tool.Invoker
}

// Run executes the release pipeline end to end and returns the terminal
// error, from which the process exit code is derived via ExitCodeFor.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "release-builder")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	applyOverrides(cfg, opts)

	if err = config.Validate(cfg); err != nil {
		return err
	}

	invoker := opts.Invoker
	if invoker == nil {
		invoker = tool.NewExecInvoker()
	}

	// A dry run takes no marker: it has no side effects to protect.
	if !opts.DryRun {
		release, markerErr := acquireRunMarker(ctx)
		if markerErr != nil {
			return markerErr
		}

		defer release()
	}

	controller := NewController(cfg, invoker, opts.SkipFreeze, opts.DryRun)
	report := controller.Run(ctx)

	if report.Success() {
		logger.Info(ctx, report.Summary())
	} else {
		logger.Error(ctx, report.Summary())
	}

	if !opts.DryRun {
		recordHistory(ctx, cfg.HistoryFile, report)
	}

	return report.Err
}

// applyOverrides copies non-zero option values over the loaded configuration.
// Command-line arguments win over the settings file.
func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.EntryPoint != "" {
		cfg.EntryPoint = opts.EntryPoint
	}

	if opts.OutputName != "" {
		cfg.OutputName = opts.OutputName
	}

	if opts.InstallerSpec != "" {
		cfg.InstallerSpec = opts.InstallerSpec
	}

	if opts.FreezerPath != "" {
		cfg.FreezerPath = opts.FreezerPath
	}

	if opts.PackagerPath != "" {
		cfg.PackagerPath = opts.PackagerPath
	}

	if opts.TimeoutSeconds > 0 {
		cfg.StageTimeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}
}

// recordHistory appends the run to the local history database. History is an
// audit convenience: failures here must not fail an otherwise good build.
func recordHistory(ctx context.Context, path string, report *Report) {
	repo, err := history.Open(path)
	if err != nil {
		logger.Warnf(ctx, "Could not open history database: %v", err)

		return
	}

	defer func() {
		_ = repo.Close()
	}()

	run := &history.Run{
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Outcome:    report.State,
		ExitCode:   report.ExitCode(),
		Stages:     report.Stages,
	}

	if err = repo.RecordRun(ctx, run); err != nil {
		logger.Warnf(ctx, "Could not record run history: %v", err)
	}
}

// RecentRuns loads recent pipeline runs for the history subcommand.
func RecentRuns(ctx context.Context, configPath string, limit int) ([]history.Run, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	repo, err := history.Open(cfg.HistoryFile)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = repo.Close()
	}()

	return repo.RecentRuns(ctx, limit)
}
