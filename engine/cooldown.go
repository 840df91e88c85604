/*
cooldown.go - Per-actor, per-scope action rate limiting

PURPOSE:
  Limits how often an actor can perform a gated action: one roulette spin
  per day, one full rancho heal per day. One record per (actor, scope);
  scopes for the same actor never interact.

CHECK-THEN-COMMIT:
  TryConsume only checks. The caller performs the action and then calls
  Stamp as part of the same flow. This mirrors the two-step "read status,
  then perform and stamp" pattern the features were built around, and keeps
  a failed action from burning the cooldown.

CLOCK:
  All instants are UTC wall clock; remaining time is a plain delta with no
  timezone sensitivity. The Now func is injectable for tests.

SEE ALSO:
  - store.go: GetCooldown / StampCooldown
  - roulette, hospital: the two gated features
*/
package engine

import (
	"context"
	"time"
)

// CooldownStatus is the outcome of a gate check.
type CooldownStatus struct {
	Allowed   bool
	Remaining time.Duration
}

// CooldownGate checks and stamps gated actions.
type CooldownGate struct {
	Store Store
	Now   func() time.Time
}

func NewCooldownGate(store Store) *CooldownGate {
	return &CooldownGate{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// TryConsume reports whether the action is allowed and, if not, how long
// until it is. It does not record anything; commit with Stamp.
func (g *CooldownGate) TryConsume(ctx context.Context, actorID ActorID, scopeKey string, interval time.Duration) (CooldownStatus, error) {
	rec, err := g.Store.GetCooldown(ctx, actorID, scopeKey)
	if err != nil {
		return CooldownStatus{}, err
	}
	if rec == nil {
		return CooldownStatus{Allowed: true}, nil
	}

	elapsed := g.Now().Sub(rec.LastUsedAt)
	if elapsed >= interval {
		return CooldownStatus{Allowed: true}, nil
	}

	return CooldownStatus{Allowed: false, Remaining: interval - elapsed}, nil
}

// Stamp records a use at the current instant.
func (g *CooldownGate) Stamp(ctx context.Context, actorID ActorID, scopeKey string) error {
	return g.Store.StampCooldown(ctx, CooldownRecord{
		ActorID:    actorID,
		ScopeKey:   scopeKey,
		LastUsedAt: g.Now(),
	})
}
