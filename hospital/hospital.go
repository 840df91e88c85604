/*
Package hospital provides the health establishment.

PURPOSE:
  Owns the health stat (0..100 points) and two treatments:
  - Consultation: a 200-coin request that restores 40 health when a doctor
    approves it. Nothing is charged while the request sits pending.
  - Rancho heal: a free full restore of health and hunger, limited to once
    per day per actor.

CLAMPING:
  Health credits never push past 100; a consultation approved at 90 health
  restores 10 and charges the full fee. Afflictions and decay never drop
  health below 0 (see roulette and the decay scheduler).

SEE ALSO:
  - engine/request.go: Consultation approval flow
  - engine/cooldown.go: Rancho heal gate
*/
package hospital

import (
	"context"
	"time"

	"github.com/yunhopapisaoko-dot/township/engine"
	"github.com/yunhopapisaoko-dot/township/tavern"
)

// =============================================================================
// ACCOUNT
// =============================================================================

// Account identifies hospital-owned balances.
type Account string

func (a Account) AccountID() string     { return string(a) }
func (a Account) AccountDomain() string { return "hospital" }

// AccountHealth is the 0..100 health stat.
const AccountHealth Account = "health"

func init() {
	engine.RegisterAccount(AccountHealth)
}

// KindConsultation is a doctor-reviewed treatment request.
const KindConsultation engine.RequestKind = "hospital_consultation"

const (
	// ConsultationFee is charged when a doctor approves.
	ConsultationFee = 200
	// ConsultationHeal is the health restored by an approved consultation.
	ConsultationHeal = 40
	// StatCap bounds every stat account.
	StatCap = 100

	// RanchoScope keys the daily full-heal cooldown.
	RanchoScope = "rancho-heal"
	// RanchoInterval is how often the rancho heal may be used.
	RanchoInterval = 24 * time.Hour
)

// =============================================================================
// SERVICE
// =============================================================================

// Service exposes the hospital's operations.
type Service struct {
	Ledger engine.Ledger
	Engine *engine.RequestEngine
	Gate   *engine.CooldownGate
}

func NewService(ledger engine.Ledger, eng *engine.RequestEngine, gate *engine.CooldownGate) *Service {
	return &Service{Ledger: ledger, Engine: eng, Gate: gate}
}

// Health returns the actor's current health.
func (s *Service) Health(ctx context.Context, actorID engine.ActorID) (engine.Amount, error) {
	return s.Ledger.BalanceOf(ctx, actorID, AccountHealth)
}

// RequestConsultation files a consultation. The fee settles and the heal
// applies when a doctor approves; the heal is clamped at the stat cap.
func (s *Service) RequestConsultation(ctx context.Context, actorID engine.ActorID, note string) (*engine.Request, error) {
	effect := engine.EffectSpec{
		Credits: []engine.StatCredit{
			{
				Account: AccountHealth,
				Amount:  engine.Points(ConsultationHeal),
				Cap:     engine.Points(StatCap),
			},
		},
	}
	return s.Engine.Submit(ctx, actorID, KindConsultation, engine.Coins(ConsultationFee), effect, note)
}

// RanchoStatus reports whether the daily full heal is available.
func (s *Service) RanchoStatus(ctx context.Context, actorID engine.ActorID) (engine.CooldownStatus, error) {
	return s.Gate.TryConsume(ctx, actorID, RanchoScope, RanchoInterval)
}

// RanchoHeal fully restores health and hunger, once per day. The gate is
// checked first and stamped only after both restores succeed, so a failed
// heal does not burn the day's use.
func (s *Service) RanchoHeal(ctx context.Context, actorID engine.ActorID) error {
	status, err := s.Gate.TryConsume(ctx, actorID, RanchoScope, RanchoInterval)
	if err != nil {
		return err
	}
	if !status.Allowed {
		return &engine.CooldownActiveError{
			ActorID:   actorID,
			ScopeKey:  RanchoScope,
			Remaining: status.Remaining,
		}
	}

	cap := engine.Points(StatCap)
	if err := s.Ledger.CreditUpTo(ctx, actorID, AccountHealth, cap, cap, engine.TxPayout, "rancho heal"); err != nil {
		return err
	}
	if err := s.Ledger.CreditUpTo(ctx, actorID, tavern.AccountHunger, cap, cap, engine.TxPayout, "rancho heal"); err != nil {
		return err
	}

	return s.Gate.Stamp(ctx, actorID, RanchoScope)
}
