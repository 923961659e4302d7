package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/retinalogix/release-builder/internal/config"
	"github.com/retinalogix/release-builder/internal/logger"
	"github.com/retinalogix/release-builder/internal/service/pipeline"
	"github.com/retinalogix/release-builder/internal/service/watch"
	"github.com/retinalogix/release-builder/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel controls logging verbosity for all commands.
	logLevel string
	// entryPoint, outputName, installerSpec, freezerPath and packagerPath
	// override the corresponding configuration values.
	entryPoint    string
	outputName    string
	installerSpec string
	freezerPath   string
	packagerPath  string
	// timeoutSeconds bounds each external tool invocation.
	timeoutSeconds int
	// skipFreeze re-packages an existing frozen executable.
	skipFreeze bool
	// dryRun prints planned invocations without executing them.
	dryRun bool
	// watchDebounce is the quiet period before a rebuild in watch mode.
	watchDebounce time.Duration
	// historyLimit caps how many past runs the history command lists.
	historyLimit int

	// rootCmd represents the base command running the release pipeline once.
	rootCmd = &cobra.Command{
		Use:   "release-builder",
		Short: "Build a distributable installer from the application source.",
		Long: `Drives the two external packaging tools in sequence: the freezer bundles
the application and its dependencies into a single standalone executable, and
the installer builder wraps that executable into a distributable installer.

The pipeline validates the environment first, never starts packaging without a
verified frozen executable, and re-runs safely: artifacts are overwritten, not
merged. Exit codes: 0 success, 1 validation failure, 2 freeze failure,
3 package failure, 4 timeout or cancellation.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return pipeline.Run(ctx, pipelineOptions())
		},
	}

	// watchCmd re-runs the pipeline on entry-point changes.
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-run the pipeline whenever the entry-point source changes.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return watch.Run(ctx, &watch.Options{
				Pipeline: pipelineOptions(),
				Debounce: watchDebounce,
			})
		},
	}

	// historyCmd lists past pipeline runs from the local history database.
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Keep the table readable: only warnings interleave with output.
			ctx = logger.ToContext(ctx, logger.New(nil, logger.WithLevel(zapcore.WarnLevel)))

			runs, err := pipeline.RecentRuns(ctx, configPath, historyLimit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(runs) == 0 {
				_, _ = fmt.Fprintln(out, "no recorded runs")

				return nil
			}

			for _, run := range runs {
				_, _ = fmt.Fprintf(out, "#%d  %s  %-6s  exit=%d  total=%s\n",
					run.ID,
					run.StartedAt.Local().Format(time.DateTime),
					run.Outcome,
					run.ExitCode,
					run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))

				for _, stage := range run.Stages {
					status := "ok"
					if !stage.Success {
						status = "failed"
					}

					_, _ = fmt.Fprintf(out, "    %-8s %-6s exit=%d elapsed=%s\n",
						stage.Stage, status, stage.ExitCode, stage.Elapsed.Round(time.Millisecond))
				}
			}

			return nil
		},
	}
)

// pipelineOptions assembles the pipeline inputs from the command flags.
func pipelineOptions() *pipeline.Options {
	return &pipeline.Options{
		ConfigPath:     configPath,
		EntryPoint:     entryPoint,
		OutputName:     outputName,
		InstallerSpec:  installerSpec,
		FreezerPath:    freezerPath,
		PackagerPath:   packagerPath,
		TimeoutSeconds: timeoutSeconds,
		SkipFreeze:     skipFreeze,
		DryRun:         dryRun,
	}
}

// Execute runs the release-builder CLI and exits with the documented status codes.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(watchCmd, historyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(pipeline.ExitCodeFor(err))
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	persistent.StringVar(&logLevel, "log-level", "info", "logging level (debug, info, warn, error)")

	for _, flags := range []*pflag.FlagSet{rootCmd.Flags(), watchCmd.Flags()} {
		flags.StringVar(&entryPoint, "entry-point", "", "application source file handed to the freezer")
		flags.StringVar(&outputName, "output-name", "", "base name of the frozen executable")
		flags.StringVar(&installerSpec, "installer-spec", "", "installer build script consumed by the packager")
		flags.StringVar(&freezerPath, "freezer", "", "freezing tool executable")
		flags.StringVar(&packagerPath, "packager", "", "installer builder executable")
		flags.IntVar(&timeoutSeconds, "timeout-seconds", 0, "per-stage timeout in seconds")
		flags.BoolVar(&skipFreeze, "skip-freeze", false, "re-package an existing frozen executable")
	}

	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and print planned invocations without running tools")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a rebuild")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "maximum number of runs to list")
}
