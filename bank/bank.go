/*
Package bank provides the coin economy establishment.

PURPOSE:
  Owns the coin account and the money-moving operations: opening grants
  when an actor joins the town, peer-to-peer transfers, and official
  document issuance. Documents go through the request lifecycle - a teller
  approves, the fee settles on approval.

COIN RULES:
  - Coins are whole-valued; the ledger rejects fractional deltas
  - Balances never go negative; transfers and fees are rejected, not clamped
  - Every movement is a ledger transaction with a reason

SEE ALSO:
  - engine/ledger.go: Transfer and grant semantics
  - engine/request.go: Document approval flow
*/
package bank

import (
	"context"

	"github.com/yunhopapisaoko-dot/township/engine"
)

// =============================================================================
// ACCOUNT
// =============================================================================

// Account identifies bank-owned balances.
type Account string

func (a Account) AccountID() string     { return string(a) }
func (a Account) AccountDomain() string { return "bank" }

// AccountCoins is the single spendable currency of the town.
const AccountCoins Account = "coins"

func init() {
	engine.RegisterAccount(AccountCoins)
}

// KindDocument is an official-document request: fixed fee, no stat effect.
const KindDocument engine.RequestKind = "bank_document"

// =============================================================================
// SERVICE
// =============================================================================

// Service exposes the bank's operations.
type Service struct {
	Ledger engine.Ledger
	Engine *engine.RequestEngine

	// DocumentFee is debited when a teller approves a document request.
	DocumentFee engine.Amount
}

func NewService(ledger engine.Ledger, eng *engine.RequestEngine, documentFee engine.Amount) *Service {
	return &Service{Ledger: ledger, Engine: eng, DocumentFee: documentFee}
}

// OpeningGrant credits a new actor's starting coins.
func (s *Service) OpeningGrant(ctx context.Context, actorID engine.ActorID, amount engine.Amount) error {
	return s.Ledger.Credit(ctx, actorID, AccountCoins, amount, engine.TxGrant, "opening grant")
}

// Balance returns the actor's current coin balance.
func (s *Service) Balance(ctx context.Context, actorID engine.ActorID) (engine.Amount, error) {
	return s.Ledger.BalanceOf(ctx, actorID, AccountCoins)
}

// Transfer moves coins between actors atomically.
func (s *Service) Transfer(ctx context.Context, fromID, toID engine.ActorID, amount engine.Amount, reason string) error {
	if reason == "" {
		reason = "bank transfer"
	}
	return s.Ledger.Transfer(ctx, fromID, toID, AccountCoins, amount, reason)
}

// RequestDocument files a document issuance request. The fee is not
// debited until a teller approves.
func (s *Service) RequestDocument(ctx context.Context, actorID engine.ActorID, note string) (*engine.Request, error) {
	return s.Engine.Submit(ctx, actorID, KindDocument, s.DocumentFee, engine.EffectSpec{}, note)
}
