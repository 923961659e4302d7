package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/retinalogix/release-builder/internal/logger"
)

// MarkerFilename claims the output paths for the duration of a run, so two
// accidental concurrent runs produce a clean diagnostic instead of clobbering
// each other's artifacts.
const MarkerFilename = "release-builder-run-marker.pid"

// errPipelineAlreadyRunning indicates another live run holds the marker.
var errPipelineAlreadyRunning = errors.New("another release-builder run is in progress")

// acquireRunMarker writes a marker file holding this process ID. A marker left
// by a crashed run is recovered when its PID no longer maps to a live
// release-builder process. The returned release function removes the marker.
func acquireRunMarker(ctx context.Context) (func(), error) {
	contents, err := os.ReadFile(MarkerFilename)

	switch {
	case err == nil:
		if markerOwnerAlive(contents) {
			return nil, fmt.Errorf("%w (marker: %s)", errPipelineAlreadyRunning, MarkerFilename)
		}

		logger.Info(ctx, "Removing stale run marker from a previous crashed run")

		if err = os.Remove(MarkerFilename); err != nil {
			return nil, fmt.Errorf("remove stale marker: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Nothing to recover.
	default:
		return nil, fmt.Errorf("read run marker: %w", err)
	}

	// O_EXCL closes the race between two runs both observing no marker.
	file, err := os.OpenFile(MarkerFilename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errPipelineAlreadyRunning
		}

		return nil, fmt.Errorf("create run marker: %w", err)
	}

	if _, err = fmt.Fprintf(file, "%d", os.Getpid()); err != nil {
		_ = file.Close()
		_ = os.Remove(MarkerFilename)

		return nil, fmt.Errorf("write run marker: %w", err)
	}

	if err = file.Close(); err != nil {
		_ = os.Remove(MarkerFilename)

		return nil, fmt.Errorf("close run marker: %w", err)
	}

	release := func() {
		_ = os.Remove(MarkerFilename)
	}

	return release, nil
}

// markerOwnerAlive reports whether the PID recorded in the marker still maps
// to a live release-builder process. Unparseable contents are treated as live
// to stay on the safe side.
func markerOwnerAlive(contents []byte) bool {
	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		return true
	}

	if pid == os.Getpid() {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return false
	}

	// The PID may have been recycled by an unrelated process.
	return strings.Contains(process.Executable(), "release-builder")
}
