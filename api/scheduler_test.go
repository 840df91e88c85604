package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yunhopapisaoko-dot/township/api"
	"github.com/yunhopapisaoko-dot/township/engine"
	"github.com/yunhopapisaoko-dot/township/hospital"
	"github.com/yunhopapisaoko-dot/township/store/sqlite"
	"github.com/yunhopapisaoko-dot/township/tavern"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestScheduler(t *testing.T) (*api.StatDecayScheduler, *sqlite.Store, engine.Ledger) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ledger := engine.NewLedger(st)
	return api.NewStatDecayScheduler(st, ledger, zerolog.Nop()), st, ledger
}

func addActor(t *testing.T, st *sqlite.Store, id string) {
	t.Helper()
	require.NoError(t, st.SaveActor(context.Background(), sqlite.Actor{
		ID: id, Name: id, CreatedAt: time.Now().UTC(),
	}))
}

func points(t *testing.T, ledger engine.Ledger, actor engine.ActorID, account engine.Account) string {
	t.Helper()
	amount, err := ledger.BalanceOf(context.Background(), actor, account)
	require.NoError(t, err)
	return amount.Value.String()
}

// =============================================================================
// DECAY TICKS
// =============================================================================

func TestScheduler_HungerTick_AllActors(t *testing.T) {
	// GIVEN: Two actors at 50 and 1 hunger
	// WHEN: Three hunger ticks pass
	// THEN: 50 drops to 47; 1 drops to 0 and stays there

	scheduler, st, ledger := newTestScheduler(t)
	ctx := context.Background()
	addActor(t, st, "fed")
	addActor(t, st, "starving")

	require.NoError(t, ledger.Credit(ctx, "fed", tavern.AccountHunger, engine.Points(50), engine.TxGrant, "seed"))
	require.NoError(t, ledger.Credit(ctx, "starving", tavern.AccountHunger, engine.Points(1), engine.TxGrant, "seed"))

	for i := 0; i < 3; i++ {
		scheduler.RunHungerTick()
	}

	assert.Equal(t, "47", points(t, ledger, "fed", tavern.AccountHunger))
	assert.Equal(t, "0", points(t, ledger, "starving", tavern.AccountHunger))
}

func TestScheduler_HealthTick_OnlyWhenStarving(t *testing.T) {
	// GIVEN: A fed actor and a starving one, both at 80 health
	// WHEN: A health tick passes
	// THEN: Only the starving actor loses health

	scheduler, st, ledger := newTestScheduler(t)
	ctx := context.Background()
	addActor(t, st, "fed")
	addActor(t, st, "starving")

	require.NoError(t, ledger.Credit(ctx, "fed", tavern.AccountHunger, engine.Points(10), engine.TxGrant, "seed"))
	require.NoError(t, ledger.Credit(ctx, "fed", hospital.AccountHealth, engine.Points(80), engine.TxGrant, "seed"))
	require.NoError(t, ledger.Credit(ctx, "starving", hospital.AccountHealth, engine.Points(80), engine.TxGrant, "seed"))

	scheduler.RunHealthTick()

	assert.Equal(t, "80", points(t, ledger, "fed", hospital.AccountHealth))
	assert.Equal(t, "79", points(t, ledger, "starving", hospital.AccountHealth))
}

func TestScheduler_HealthTick_FlooredAtZero(t *testing.T) {
	scheduler, st, ledger := newTestScheduler(t)
	addActor(t, st, "starving")

	require.NoError(t, ledger.Credit(context.Background(), "starving", hospital.AccountHealth,
		engine.Points(1), engine.TxGrant, "seed"))

	scheduler.RunHealthTick()
	scheduler.RunHealthTick()

	assert.Equal(t, "0", points(t, ledger, "starving", hospital.AccountHealth))
}

func TestScheduler_Disabled_DoesNotStart(t *testing.T) {
	scheduler, _, _ := newTestScheduler(t)
	scheduler.Enabled = false

	scheduler.Start()
	scheduler.Stop()
}
