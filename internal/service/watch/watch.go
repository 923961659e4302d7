package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/retinalogix/release-builder/internal/config"
	"github.com/retinalogix/release-builder/internal/logger"
	"github.com/retinalogix/release-builder/internal/service/pipeline"
)

// DefaultDebounce is how long the watcher waits after the last change before
// rebuilding. Editors typically produce bursts of filesystem events per save.
const DefaultDebounce = 2 * time.Second

// Options contains inputs for the watch entry point.
type Options struct {
	// Pipeline configures the underlying pipeline runs.
	Pipeline *pipeline.Options
	// Debounce overrides the quiet period before a rebuild.
	Debounce time.Duration
}

// RunFunc executes one pipeline run; replaced with a double in tests.
type RunFunc func(ctx context.Context) error

// Service re-runs the release pipeline whenever the entry-point source changes.
type Service struct {
	entryPoint string
	debounce   time.Duration
	run        RunFunc
}

// NewService creates a watch service over the given entry point and runner.
func NewService(entryPoint string, debounce time.Duration, run RunFunc) *Service {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Service{
		entryPoint: entryPoint,
		debounce:   debounce,
		run:        run,
	}
}

// Run executes the watch loop until the context is cancelled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "watch")

	cfg, err := config.Load(opts.Pipeline.ConfigPath)
	if err != nil {
		return err
	}

	entryPoint := cfg.EntryPoint
	if opts.Pipeline.EntryPoint != "" {
		entryPoint = opts.Pipeline.EntryPoint
	}

	service := NewService(entryPoint, opts.Debounce, func(ctx context.Context) error {
		return pipeline.Run(ctx, opts.Pipeline)
	})

	return service.Watch(ctx)
}

// Watch builds once immediately, then rebuilds after each debounced change to
// the entry-point file. Build failures are logged and the loop continues; only
// watcher breakage or context cancellation ends the loop.
func (s *Service) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	// Watch the containing directory: editors replace files on save, and a
	// watch on the file itself would be lost with the old inode.
	if err = watcher.Add(filepath.Dir(s.entryPoint)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.entryPoint), err)
	}

	logger.InfoKV(ctx, "Watching for changes", "entry_point", s.entryPoint, "debounce", s.debounce.String())

	s.build(ctx)

	// The timer is armed by events and drained before reuse.
	debounce := time.NewTimer(s.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if s.shouldRebuild(event) {
				logger.DebugKV(ctx, "Source change detected", "event", event.String())
				debounce.Reset(s.debounce)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warnf(ctx, "File watcher error: %v", watchErr)

		case <-debounce.C:
			s.build(ctx)
		}
	}
}

// build runs the pipeline once, logging instead of propagating failures.
func (s *Service) build(ctx context.Context) {
	logger.Info(ctx, "Running release pipeline")

	if err := s.run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}

		logger.Errorf(ctx, "Build failed, watching for the next change: %v", err)

		return
	}

	logger.Info(ctx, "Build succeeded, watching for the next change")
}

// shouldRebuild reports whether the event concerns the entry-point file.
func (s *Service) shouldRebuild(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != filepath.Base(s.entryPoint) {
		return false
	}

	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
