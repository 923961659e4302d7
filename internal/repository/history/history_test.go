package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retinalogix/release-builder/internal/domain/build"
)

// TestRecordAndRecentRuns round-trips two runs through an in-memory database.
func TestRecordAndRecentRuns(t *testing.T) {
	t.Parallel()

	repo, err := Open(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = repo.Close()
	})

	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Millisecond)

	first := &Run{
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Outcome:    build.StateFailed,
		ExitCode:   2,
		Stages: []build.StageResult{
			{
				Stage:      build.StageFreeze,
				Success:    false,
				ExitCode:   2,
				OutputTail: "missing module tkinter",
				Elapsed:    2 * time.Second,
				Err:        &build.ToolExitError{Tool: "pyinstaller", ExitCode: 2},
			},
		},
	}

	require.NoError(t, repo.RecordRun(ctx, first))
	require.Positive(t, first.ID)

	second := &Run{
		StartedAt:  started.Add(time.Minute),
		FinishedAt: started.Add(2 * time.Minute),
		Outcome:    build.StateDone,
		ExitCode:   0,
		Stages: []build.StageResult{
			{Stage: build.StageFreeze, Success: true, Elapsed: 40 * time.Second},
			{Stage: build.StagePackage, Success: true, Elapsed: 20 * time.Second},
		},
	}

	require.NoError(t, repo.RecordRun(ctx, second))

	runs, err := repo.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	require.Equal(t, build.StateDone, runs[0].Outcome)
	require.Equal(t, 0, runs[0].ExitCode)
	require.Len(t, runs[0].Stages, 2)
	require.Equal(t, build.StageFreeze, runs[0].Stages[0].Stage)
	require.Equal(t, build.StagePackage, runs[0].Stages[1].Stage)

	require.Equal(t, build.StateFailed, runs[1].Outcome)
	require.Equal(t, 2, runs[1].ExitCode)
	require.Len(t, runs[1].Stages, 1)
	require.Contains(t, runs[1].Stages[0].OutputTail, "tkinter")
	require.Error(t, runs[1].Stages[0].Err)
	require.Equal(t, 2*time.Second, runs[1].Stages[0].Elapsed)
}

// TestRecentRunsLimit verifies the limit and its default.
func TestRecentRunsLimit(t *testing.T) {
	t.Parallel()

	repo, err := Open(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = repo.Close()
	})

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := &Run{
			StartedAt:  time.Now().UTC(),
			FinishedAt: time.Now().UTC(),
			Outcome:    build.StateDone,
		}
		require.NoError(t, repo.RecordRun(ctx, run))
	}

	runs, err := repo.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	runs, err = repo.RecentRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
}
