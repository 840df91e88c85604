package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yunhopapisaoko-dot/township/bank"
	"github.com/yunhopapisaoko-dot/township/engine"
	"github.com/yunhopapisaoko-dot/township/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func coinTx(id, actor string, delta int64, key string) engine.Transaction {
	return engine.Transaction{
		ID:             engine.TransactionID(id),
		ActorID:        engine.ActorID(actor),
		Account:        bank.AccountCoins,
		Delta:          engine.Coins(delta),
		Type:           engine.TxGrant,
		IdempotencyKey: key,
		CreatedAt:      time.Now().UTC(),
	}
}

// =============================================================================
// TRANSACTION LOG
// =============================================================================

func TestStore_AppendAndLoad_RoundTrip(t *testing.T) {
	// GIVEN: An appended transaction with all fields set
	// WHEN: Loading the actor's log
	// THEN: Every field survives the round trip

	store := newTestStore(t)
	ctx := context.Background()

	tx := coinTx("tx-1", "actor-1", 500, "key-1")
	tx.ReferenceID = "req-9"
	tx.Reason = "opening grant"
	require.NoError(t, store.Append(ctx, tx))

	txs, err := store.Load(ctx, "actor-1", bank.AccountCoins)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	got := txs[0]
	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, "coins", got.Account.AccountID())
	assert.Equal(t, "500", got.Delta.Value.String())
	assert.Equal(t, engine.UnitCoins, got.Delta.Unit)
	assert.Equal(t, engine.TxGrant, got.Type)
	assert.Equal(t, "req-9", got.ReferenceID)
	assert.Equal(t, "opening grant", got.Reason)
	assert.Equal(t, "key-1", got.IdempotencyKey)
}

func TestStore_DuplicateIdempotencyKey_Rejected(t *testing.T) {
	// GIVEN: A transaction with an idempotency key
	// WHEN: Appending another with the same key
	// THEN: ErrDuplicateIdempotencyKey from the unique constraint

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, coinTx("tx-1", "actor-1", 100, "same-key")))

	err := store.Append(ctx, coinTx("tx-2", "actor-1", 100, "same-key"))
	assert.ErrorIs(t, err, engine.ErrDuplicateIdempotencyKey)

	exists, err := store.Exists(ctx, "same-key")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_EmptyIdempotencyKeys_DoNotCollide(t *testing.T) {
	// GIVEN: Two transactions without idempotency keys
	// WHEN: Appending both
	// THEN: Both land (empty maps to NULL, not a duplicate)

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, coinTx("tx-1", "actor-1", 100, "")))
	require.NoError(t, store.Append(ctx, coinTx("tx-2", "actor-1", 100, "")))

	txs, err := store.Load(ctx, "actor-1", bank.AccountCoins)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction body that appends then fails
	// WHEN: WithTx returns the error
	// THEN: The append is rolled back

	store := newTestStore(t)
	ctx := context.Background()

	sentinel := assert.AnError
	err := store.WithTx(ctx, func(s engine.Store) error {
		if err := s.Append(ctx, coinTx("tx-1", "actor-1", 100, "")); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	txs, err := store.Load(ctx, "actor-1", bank.AccountCoins)
	require.NoError(t, err)
	assert.Empty(t, txs, "rolled-back write must not be visible")
}

// =============================================================================
// REQUESTS
// =============================================================================

func pendingRequest(id, actor string, kind engine.RequestKind) engine.Request {
	now := time.Now().UTC()
	return engine.Request{
		ID:          engine.RequestID(id),
		RequesterID: engine.ActorID(actor),
		Kind:        kind,
		Cost:        engine.Coins(200),
		Status:      engine.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestStore_Requests_SaveAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := pendingRequest("req-1", "actor-1", "consultation")
	req.Effect = engine.EffectSpec{
		Credits: []engine.StatCredit{
			{Account: bank.AccountCoins, Amount: engine.Coins(40), Cap: engine.Coins(100)},
		},
	}
	req.Note = "checkup"
	require.NoError(t, store.SaveRequest(ctx, req))

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, engine.RequestPending, got.Status)
	assert.Equal(t, "200", got.Cost.Value.String())
	assert.Equal(t, "checkup", got.Note)
	require.Len(t, got.Effect.Credits, 1)
	assert.Equal(t, "40", got.Effect.Credits[0].Amount.Value.String())
	assert.Equal(t, "100", got.Effect.Credits[0].Cap.Value.String())

	pending, err := store.PendingRequestFor(ctx, "actor-1", "consultation")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, engine.RequestID("req-1"), pending.ID)

	missing, err := store.GetRequest(ctx, "no-such")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_SecondPending_SameKind_BlockedByIndex(t *testing.T) {
	// GIVEN: A pending consultation for actor-1
	// WHEN: Inserting another pending consultation for the same actor
	// THEN: The partial unique index rejects it

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRequest(ctx, pendingRequest("req-1", "actor-1", "consultation")))

	err := store.SaveRequest(ctx, pendingRequest("req-2", "actor-1", "consultation"))
	assert.ErrorIs(t, err, engine.ErrDuplicatePendingRequest)

	// Different kind and different actor both pass
	require.NoError(t, store.SaveRequest(ctx, pendingRequest("req-3", "actor-1", "order")))
	require.NoError(t, store.SaveRequest(ctx, pendingRequest("req-4", "actor-2", "consultation")))
}

func TestStore_ResolveRequest_Conditional(t *testing.T) {
	// GIVEN: A pending request
	// WHEN: Resolving it twice
	// THEN: First wins, second reports false

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRequest(ctx, pendingRequest("req-1", "actor-1", "consultation")))

	now := time.Now().UTC()
	ok, err := store.ResolveRequest(ctx, "req-1", engine.RequestApproved, "doctor-9", "fine", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ResolveRequest(ctx, "req-1", engine.RequestRejected, "doctor-2", "", now)
	require.NoError(t, err)
	assert.False(t, ok, "terminal request must not flip again")

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, engine.RequestApproved, got.Status)
	assert.Equal(t, "doctor-9", got.ReviewerID)
	assert.NotNil(t, got.ResolvedAt)

	// A resolved request frees the pending slot
	require.NoError(t, store.SaveRequest(ctx, pendingRequest("req-5", "actor-1", "consultation")))
}

// =============================================================================
// COOLDOWNS AND ACTORS
// =============================================================================

func TestStore_Cooldowns_UpsertAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetCooldown(ctx, "actor-1", "spin")
	require.NoError(t, err)
	assert.Nil(t, missing)

	first := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.StampCooldown(ctx, engine.CooldownRecord{
		ActorID: "actor-1", ScopeKey: "spin", LastUsedAt: first,
	}))

	rec, err := store.GetCooldown(ctx, "actor-1", "spin")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.LastUsedAt.Equal(first))

	// Restamp replaces, not duplicates
	second := first.Add(25 * time.Hour)
	require.NoError(t, store.StampCooldown(ctx, engine.CooldownRecord{
		ActorID: "actor-1", ScopeKey: "spin", LastUsedAt: second,
	}))

	rec, err = store.GetCooldown(ctx, "actor-1", "spin")
	require.NoError(t, err)
	assert.True(t, rec.LastUsedAt.Equal(second))
}

func TestStore_Actors_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveActor(ctx, sqlite.Actor{ID: "actor-1", Name: "Mabel"}))
	require.NoError(t, store.SaveActor(ctx, sqlite.Actor{ID: "actor-2", Name: "Abe"}))

	got, err := store.GetActor(ctx, "actor-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Mabel", got.Name)

	actors, err := store.ListActors(ctx)
	require.NoError(t, err)
	require.Len(t, actors, 2)
	assert.Equal(t, "Abe", actors[0].Name, "ordered by name")

	missing, err := store.GetActor(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_SpinOutcomes_History(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"spin-1", "spin-2", "spin-3"} {
		require.NoError(t, store.SaveSpinOutcome(ctx, sqlite.SpinOutcome{
			ID: id, ActorID: "actor-1", Category: "affliction",
			PrizeID: "fever", PrizeKind: "affliction", PrizeLabel: "Fever", PrizeValue: 20,
			DrawnAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	outcomes, err := store.SpinOutcomesByActor(ctx, "actor-1", 2)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "spin-3", outcomes[0].ID, "newest first")
	assert.Equal(t, "spin-2", outcomes[1].ID)
}
