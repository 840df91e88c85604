/*
ledger.go - Balance accounting over the append-only transaction log

PURPOSE:
  The Ledger is the only writer of balance changes. Every grant, transfer,
  purchase settlement, prize payout, and decay tick is recorded as an
  immutable transaction. Balance is always computed by replaying the log -
  there is no separate "balance" field that can get out of sync.

CRITICAL INVARIANTS:
  1. NON-NEGATIVE: No operation may take a balance below zero. An operation
     that would is rejected before any write.
  2. WHOLE COINS: The domain uses whole coins; fractional coin deltas are
     rejected with ErrInvalidAmount.
  3. ATOMIC TRANSFERS: Debit and credit of a transfer land in one store
     transaction; no intermediate state is externally observable.
  4. APPEND-ONLY: No Update, No Delete. Corrections are offsetting entries.

CONCURRENCY:
  All mutations run inside TxStore.WithTx. The store serializes conflicting
  writers, so two concurrent transfers touching the same actor can never
  interleave into a negative or incorrect balance.

EXAMPLE FLOW:
  1. Actor granted 1000 coins:     TxGrant +1000
  2. Transfers 400 to a friend:    TxTransferOut -400 / TxTransferIn +400
  3. Wins 50 coins at roulette:    TxPayout +50
  Balance: replay = 650 coins

SEE ALSO:
  - store.go: Persistence interface
  - request.go: Applies costs through the ledger on approval
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger exposes balance reads and the mutation operations the domains use.
type Ledger interface {
	// BalanceOf computes the current balance by replaying transactions.
	BalanceOf(ctx context.Context, actorID ActorID, account Account) (Amount, error)

	// Transfer atomically debits from and credits to by exactly amount.
	// Fails with ErrInvalidAmount or ErrInsufficientFunds; no effect on failure.
	Transfer(ctx context.Context, fromID, toID ActorID, account Account, amount Amount, reason string) error

	// Credit unilaterally adds amount to an actor's balance.
	Credit(ctx context.Context, actorID ActorID, account Account, amount Amount, txType TransactionType, reason string) error

	// Debit unilaterally removes amount, enforcing non-negativity.
	Debit(ctx context.Context, actorID ActorID, account Account, amount Amount, txType TransactionType, reason string) error

	// CreditUpTo credits at most amount without exceeding cap.
	// Used for stat boosts (heal to 100). Crediting at the cap is a no-op.
	CreditUpTo(ctx context.Context, actorID ActorID, account Account, amount, cap Amount, txType TransactionType, reason string) error

	// DebitDownTo debits at most amount without going below floor.
	// Used for afflictions and decay (never below 0). At the floor it is a no-op.
	DebitDownTo(ctx context.Context, actorID ActorID, account Account, amount, floor Amount, txType TransactionType, reason string) error
}

// =============================================================================
// DEFAULT LEDGER - Implementation using TxStore
// =============================================================================

type DefaultLedger struct {
	Store TxStore
	Now   func() time.Time
	NewID func() string
}

func NewLedger(store TxStore) *DefaultLedger {
	return &DefaultLedger{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

func (l *DefaultLedger) BalanceOf(ctx context.Context, actorID ActorID, account Account) (Amount, error) {
	return balanceOf(ctx, l.Store, actorID, account)
}

// balanceOf replays the log inside whatever store view the caller holds,
// so balance checks see uncommitted writes of the surrounding transaction.
func balanceOf(ctx context.Context, store Store, actorID ActorID, account Account) (Amount, error) {
	txs, err := store.Load(ctx, actorID, account)
	if err != nil {
		return Amount{}, err
	}

	balance := NewAmount(0, unitFor(account))
	for _, tx := range txs {
		balance = balance.Add(tx.Delta)
	}
	return balance, nil
}

func unitFor(account Account) Unit {
	if account.AccountID() == "coins" {
		return UnitCoins
	}
	return UnitPoints
}

func (l *DefaultLedger) Transfer(ctx context.Context, fromID, toID ActorID, account Account, amount Amount, reason string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}

	ref := l.NewID()
	now := l.Now()

	return l.Store.WithTx(ctx, func(s Store) error {
		available, err := balanceOf(ctx, s, fromID, account)
		if err != nil {
			return err
		}
		if available.LessThan(amount) {
			return &InsufficientFundsError{ActorID: fromID, Available: available, Requested: amount}
		}

		return s.AppendBatch(ctx, []Transaction{
			{
				ID:          TransactionID(l.NewID()),
				ActorID:     fromID,
				Account:     account,
				Delta:       amount.Neg(),
				Type:        TxTransferOut,
				ReferenceID: ref,
				Reason:      reason,
				CreatedAt:   now,
			},
			{
				ID:          TransactionID(l.NewID()),
				ActorID:     toID,
				Account:     account,
				Delta:       amount,
				Type:        TxTransferIn,
				ReferenceID: ref,
				Reason:      reason,
				CreatedAt:   now,
			},
		})
	})
}

func (l *DefaultLedger) Credit(ctx context.Context, actorID ActorID, account Account, amount Amount, txType TransactionType, reason string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}

	return l.Store.Append(ctx, Transaction{
		ID:        TransactionID(l.NewID()),
		ActorID:   actorID,
		Account:   account,
		Delta:     amount,
		Type:      txType,
		Reason:    reason,
		CreatedAt: l.Now(),
	})
}

func (l *DefaultLedger) Debit(ctx context.Context, actorID ActorID, account Account, amount Amount, txType TransactionType, reason string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}

	return l.Store.WithTx(ctx, func(s Store) error {
		available, err := balanceOf(ctx, s, actorID, account)
		if err != nil {
			return err
		}
		if available.LessThan(amount) {
			return &InsufficientFundsError{ActorID: actorID, Available: available, Requested: amount}
		}

		return s.Append(ctx, Transaction{
			ID:        TransactionID(l.NewID()),
			ActorID:   actorID,
			Account:   account,
			Delta:     amount.Neg(),
			Type:      txType,
			Reason:    reason,
			CreatedAt: l.Now(),
		})
	})
}

func (l *DefaultLedger) CreditUpTo(ctx context.Context, actorID ActorID, account Account, amount, cap Amount, txType TransactionType, reason string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}

	return l.Store.WithTx(ctx, func(s Store) error {
		current, err := balanceOf(ctx, s, actorID, account)
		if err != nil {
			return err
		}

		headroom := cap.Sub(current)
		if !headroom.IsPositive() {
			return nil
		}
		delta := amount.Min(headroom)

		return s.Append(ctx, Transaction{
			ID:        TransactionID(l.NewID()),
			ActorID:   actorID,
			Account:   account,
			Delta:     delta,
			Type:      txType,
			Reason:    reason,
			CreatedAt: l.Now(),
		})
	})
}

func (l *DefaultLedger) DebitDownTo(ctx context.Context, actorID ActorID, account Account, amount, floor Amount, txType TransactionType, reason string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}

	return l.Store.WithTx(ctx, func(s Store) error {
		current, err := balanceOf(ctx, s, actorID, account)
		if err != nil {
			return err
		}

		room := current.Sub(floor)
		if !room.IsPositive() {
			return nil
		}
		delta := amount.Min(room)

		return s.Append(ctx, Transaction{
			ID:        TransactionID(l.NewID()),
			ActorID:   actorID,
			Account:   account,
			Delta:     delta.Neg(),
			Type:      txType,
			Reason:    reason,
			CreatedAt: l.Now(),
		})
	})
}

func validateAmount(amount Amount) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidAmount, amount.Value)
	}
	if amount.Unit == UnitCoins && !amount.IsWhole() {
		return fmt.Errorf("%w: coins are whole-valued, got %v", ErrInvalidAmount, amount.Value)
	}
	return nil
}
