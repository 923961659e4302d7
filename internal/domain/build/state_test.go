package build

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStateTransitions verifies the legal controller transitions and terminality.
func TestStateTransitions(t *testing.T) {
	t.Parallel()

	require.True(t, StateIdle.CanTransitionTo(StateValidating))
	require.True(t, StateValidating.CanTransitionTo(StateFreezing))
	require.True(t, StateValidating.CanTransitionTo(StatePackaging))
	require.True(t, StateFreezing.CanTransitionTo(StatePackaging))
	require.True(t, StatePackaging.CanTransitionTo(StateDone))

	// No skipping forward past the defined edges.
	require.False(t, StateIdle.CanTransitionTo(StateFreezing))
	require.False(t, StateFreezing.CanTransitionTo(StateDone))

	// Every non-terminal state can fail; terminal states cannot move.
	for _, s := range []State{StateIdle, StateValidating, StateFreezing, StatePackaging} {
		require.True(t, s.CanTransitionTo(StateFailed))
		require.False(t, s.IsTerminal())
	}

	require.True(t, StateDone.IsTerminal())
	require.True(t, StateFailed.IsTerminal())
	require.False(t, StateDone.CanTransitionTo(StateFailed))
	require.False(t, StateFailed.CanTransitionTo(StateValidating))
}
