package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

// TestShouldRebuild verifies event filtering by file name and operation.
func TestShouldRebuild(t *testing.T) {
	t.Parallel()

	service := NewService(filepath.Join("src", "app.py"), 0, nil)

	require.True(t, service.shouldRebuild(fsnotify.Event{Name: "src/app.py", Op: fsnotify.Write}))
	require.True(t, service.shouldRebuild(fsnotify.Event{Name: "src/app.py", Op: fsnotify.Create}))
	require.False(t, service.shouldRebuild(fsnotify.Event{Name: "src/app.py", Op: fsnotify.Chmod}))
	require.False(t, service.shouldRebuild(fsnotify.Event{Name: "src/other.py", Op: fsnotify.Write}))
}

// TestWatchRebuildsOnChange starts the loop with a counting runner, touches
// the entry point, and expects a debounced rebuild after the initial build.
func TestWatchRebuildsOnChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entryPoint := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(entryPoint, []byte("print('x')"), 0o644))

	var builds atomic.Int32

	runs := make(chan struct{}, 8)
	service := NewService(entryPoint, 50*time.Millisecond, func(_ context.Context) error {
		builds.Add(1)
		runs <- struct{}{}

		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- service.Watch(ctx)
	}()

	// Initial build on startup.
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("initial build never ran")
	}

	// A change to the entry point triggers exactly one debounced rebuild.
	require.NoError(t, os.WriteFile(entryPoint, []byte("print('y')"), 0o644))

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild never ran after source change")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop on cancellation")
	}

	require.GreaterOrEqual(t, builds.Load(), int32(2))
}

// TestWatchSurvivesBuildFailure keeps the loop alive when a build fails.
func TestWatchSurvivesBuildFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	entryPoint := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(entryPoint, []byte("print('x')"), 0o644))

	runs := make(chan struct{}, 8)
	service := NewService(entryPoint, 50*time.Millisecond, func(_ context.Context) error {
		runs <- struct{}{}

		return os.ErrPermission
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- service.Watch(ctx)
	}()

	// Initial failing build.
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("initial build never ran")
	}

	// The loop must still respond to changes.
	require.NoError(t, os.WriteFile(entryPoint, []byte("print('y')"), 0o644))

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop died after a failed build")
	}

	cancel()
	require.NoError(t, <-done)
}
