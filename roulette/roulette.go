/*
Package roulette provides the casino establishment.

PURPOSE:
  One spin per actor per day. The server draws from a weighted outcome
  table (shipped weights 10 money / 20 voucher / 70 affliction) and applies
  the prize immediately - no reviewer involved, the spin resolves
  synchronously and is terminal.

PRIZE APPLICATION:
  money:      credits coins for the prize value
  affliction: debits health by the prize value, floored at 0
  voucher:    recorded in the spin history only; redemption is handled
              in fiction by the establishments

  Every draw is persisted to the spin history regardless of kind, so the
  croupier panel can show who won what.

ORDERING:
  Check gate -> draw -> apply -> record -> stamp. A failed application
  leaves the cooldown unburned, matching the rancho heal pattern.

SEE ALSO:
  - engine/draw.go: The weighted drawer
  - factory: Table construction from town JSON
*/
package roulette

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/yunhopapisaoko-dot/township/bank"
	"github.com/yunhopapisaoko-dot/township/engine"
	"github.com/yunhopapisaoko-dot/township/hospital"
)

const (
	// SpinScope keys the daily spin cooldown.
	SpinScope = "roulette-spin"
	// SpinInterval is how often an actor may spin.
	SpinInterval = 24 * time.Hour
)

// Prize kinds understood by the wheel.
const (
	PrizeMoney      = "money"
	PrizeVoucher    = "voucher"
	PrizeAffliction = "affliction"
)

// =============================================================================
// HISTORY
// =============================================================================

// SpinRecord is a persisted draw.
type SpinRecord struct {
	ID      string
	ActorID engine.ActorID
	Outcome engine.Outcome
	DrawnAt time.Time
}

// HistoryStore persists spin outcomes.
type HistoryStore interface {
	SaveSpin(ctx context.Context, rec SpinRecord) error
	SpinsByActor(ctx context.Context, actorID engine.ActorID, limit int) ([]SpinRecord, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service exposes the roulette's operations.
type Service struct {
	Ledger  engine.Ledger
	Gate    *engine.CooldownGate
	Table   *engine.OutcomeTable
	History HistoryStore

	Rng   *rand.Rand
	Now   func() time.Time
	NewID func() string
}

func NewService(ledger engine.Ledger, gate *engine.CooldownGate, table *engine.OutcomeTable, history HistoryStore) *Service {
	return &Service{
		Ledger:  ledger,
		Gate:    gate,
		Table:   table,
		History: history,
		Rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		Now:     func() time.Time { return time.Now().UTC() },
		NewID:   uuid.NewString,
	}
}

// Status reports whether the actor may spin and the remaining wait if not.
func (s *Service) Status(ctx context.Context, actorID engine.ActorID) (engine.CooldownStatus, error) {
	return s.Gate.TryConsume(ctx, actorID, SpinScope, SpinInterval)
}

// Spin draws an outcome and applies it. One spin per day per actor.
func (s *Service) Spin(ctx context.Context, actorID engine.ActorID) (*SpinRecord, error) {
	status, err := s.Gate.TryConsume(ctx, actorID, SpinScope, SpinInterval)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		return nil, &engine.CooldownActiveError{
			ActorID:   actorID,
			ScopeKey:  SpinScope,
			Remaining: status.Remaining,
		}
	}

	outcome := s.Table.Draw(s.Rng)
	if err := s.apply(ctx, actorID, outcome); err != nil {
		return nil, err
	}

	rec := SpinRecord{
		ID:      s.NewID(),
		ActorID: actorID,
		Outcome: outcome,
		DrawnAt: s.Now(),
	}
	if err := s.History.SaveSpin(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.Gate.Stamp(ctx, actorID, SpinScope); err != nil {
		return nil, err
	}
	return &rec, nil
}

// History returns the actor's most recent spins.
func (s *Service) Spins(ctx context.Context, actorID engine.ActorID, limit int) ([]SpinRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.History.SpinsByActor(ctx, actorID, limit)
}

func (s *Service) apply(ctx context.Context, actorID engine.ActorID, outcome engine.Outcome) error {
	prize := outcome.Prize
	switch prize.Kind {
	case PrizeMoney:
		return s.Ledger.Credit(ctx, actorID, bank.AccountCoins,
			engine.Coins(prize.Value), engine.TxPayout, "roulette: "+prize.Label)
	case PrizeAffliction:
		return s.Ledger.DebitDownTo(ctx, actorID, hospital.AccountHealth,
			engine.Points(prize.Value), engine.Points(0), engine.TxPayout, "roulette: "+prize.Label)
	default:
		// Vouchers and unknown kinds only enter the history.
		return nil
	}
}
