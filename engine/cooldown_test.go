package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yunhopapisaoko-dot/township/engine"
	"github.com/yunhopapisaoko-dot/township/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestGate(t *testing.T) (*engine.CooldownGate, *time.Time) {
	t.Helper()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	gate := engine.NewCooldownGate(store.NewMemory())
	gate.Now = func() time.Time { return now }
	return gate, &now
}

const day = 24 * time.Hour

// =============================================================================
// GATE TESTS
// =============================================================================

func TestGate_FirstUse_Allowed(t *testing.T) {
	// GIVEN: An actor who never used the action
	// WHEN: Checking the gate
	// THEN: Allowed with no remaining wait

	gate, _ := newTestGate(t)

	status, err := gate.TryConsume(context.Background(), "actor-1", "spin", day)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Zero(t, status.Remaining)
}

func TestGate_WithinInterval_Blocked(t *testing.T) {
	// GIVEN: Actor stamped the gate 10 hours ago
	// WHEN: Checking a 24h gate
	// THEN: Blocked with 14h remaining

	gate, now := newTestGate(t)
	ctx := context.Background()

	require.NoError(t, gate.Stamp(ctx, "actor-1", "spin"))
	*now = now.Add(10 * time.Hour)

	status, err := gate.TryConsume(ctx, "actor-1", "spin", day)
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Equal(t, 14*time.Hour, status.Remaining)
}

func TestGate_AfterInterval_AllowedAgain(t *testing.T) {
	// GIVEN: Actor stamped the gate exactly 24 hours ago
	// WHEN: Checking a 24h gate
	// THEN: Allowed (boundary is inclusive)

	gate, now := newTestGate(t)
	ctx := context.Background()

	require.NoError(t, gate.Stamp(ctx, "actor-1", "spin"))
	*now = now.Add(day)

	status, err := gate.TryConsume(ctx, "actor-1", "spin", day)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
}

func TestGate_ScopesAreIndependent(t *testing.T) {
	// GIVEN: Actor burned the spin gate
	// WHEN: Checking the heal gate
	// THEN: Unaffected; and other actors are unaffected entirely

	gate, _ := newTestGate(t)
	ctx := context.Background()

	require.NoError(t, gate.Stamp(ctx, "actor-1", "spin"))

	status, err := gate.TryConsume(ctx, "actor-1", "heal", day)
	require.NoError(t, err)
	assert.True(t, status.Allowed, "scopes never interact")

	status, err = gate.TryConsume(ctx, "actor-2", "spin", day)
	require.NoError(t, err)
	assert.True(t, status.Allowed, "actors never interact")
}

func TestGate_TryConsume_DoesNotStamp(t *testing.T) {
	// GIVEN: A fresh gate
	// WHEN: Checking repeatedly without stamping
	// THEN: Still allowed; only Stamp burns the use

	gate, _ := newTestGate(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		status, err := gate.TryConsume(ctx, "actor-1", "spin", day)
		require.NoError(t, err)
		assert.True(t, status.Allowed)
	}

	require.NoError(t, gate.Stamp(ctx, "actor-1", "spin"))

	status, err := gate.TryConsume(ctx, "actor-1", "spin", day)
	require.NoError(t, err)
	assert.False(t, status.Allowed)
}

func TestGate_Restamp_ResetsTheClock(t *testing.T) {
	// GIVEN: Actor stamped, waited out the interval, and stamped again
	// WHEN: Checking shortly after the second stamp
	// THEN: Blocked based on the newest stamp

	gate, now := newTestGate(t)
	ctx := context.Background()

	require.NoError(t, gate.Stamp(ctx, "actor-1", "spin"))
	*now = now.Add(25 * time.Hour)
	require.NoError(t, gate.Stamp(ctx, "actor-1", "spin"))
	*now = now.Add(time.Hour)

	status, err := gate.TryConsume(ctx, "actor-1", "spin", day)
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Equal(t, 23*time.Hour, status.Remaining)
}
