/*
Package engine provides the core establishment economy engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms shared by every
  in-fiction establishment. Whether the feature is a bank transfer, a hospital
  consultation, a tavern order, or a roulette spin, the same engine handles
  balance accounting, the request approval lifecycle, cooldown checks, and
  weighted prize drawing.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 500 coins, 40 points)
  - Account: What kind of balance is being tracked (coins, health, hunger)
  - Transaction: An immutable ledger entry recording balance changes
  - Actor IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only offset
  2. Precision: Uses decimal.Decimal so coin math never drifts
  3. Type Safety: Strong typing for IDs prevents mixing actors and requests
  4. Auditability: Every transaction has reason, reference, and idempotency key

USAGE:
  amount := engine.Coins(500)
  tx := engine.Transaction{
      ActorID: "actor-123",
      Account: bank.AccountCoins,
      Delta:   amount,
      Type:    engine.TxGrant,
  }

SEE ALSO:
  - ledger.go: Balance accounting over transactions
  - request.go: Request approval lifecycle
  - store.go: Persistence interfaces
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitCoins  Unit = "coins"
	UnitPoints Unit = "points"
)

func NewAmount(value int64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(value), Unit: unit}
}

// Coins is shorthand for a whole-coin amount.
func Coins(value int64) Amount {
	return NewAmount(value, UnitCoins)
}

// Points is shorthand for a stat-point amount.
func Points(value int64) Amount {
	return NewAmount(value, UnitPoints)
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount              { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) IsWhole() bool             { return a.Value.IsInteger() }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}
func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ActorID string
type TransactionID string

// Account identifies what kind of balance is being tracked.
// This is an interface so domain packages define their own concrete types.
// The engine package has NO knowledge of specific accounts.
//
// Domain packages implement this:
//
//	// In bank/types.go
//	type Account string
//	func (a Account) AccountID() string { return string(a) }
//	func (a Account) AccountDomain() string { return "bank" }
//	const AccountCoins Account = "coins"
type Account interface {
	// AccountID returns the unique identifier for this account.
	AccountID() string

	// AccountDomain returns which domain this account belongs to.
	AccountDomain() string
}

// =============================================================================
// ACCOUNT REGISTRY - String <-> Account conversion for persistence
// =============================================================================

var accountRegistry = map[string]Account{}

// RegisterAccount registers a concrete account so stores can rehydrate it
// from its string form. Domain packages call this from init().
func RegisterAccount(a Account) {
	accountRegistry[a.AccountID()] = a
}

// GetOrCreateAccount resolves an account ID to its registered account,
// falling back to an opaque account for IDs from unknown domains.
func GetOrCreateAccount(id string) Account {
	if a, ok := accountRegistry[id]; ok {
		return a
	}
	return opaqueAccount(id)
}

type opaqueAccount string

func (a opaqueAccount) AccountID() string     { return string(a) }
func (a opaqueAccount) AccountDomain() string { return "unknown" }

// =============================================================================
// TRANSACTION - Atomic change to an actor's balance
// =============================================================================

type TransactionType string

const (
	TxGrant       TransactionType = "grant"        // Initial or admin-issued balance
	TxConsumption TransactionType = "consumption"  // Cost debited by an approved request
	TxTransferIn  TransactionType = "transfer_in"  // Credit side of a transfer
	TxTransferOut TransactionType = "transfer_out" // Debit side of a transfer
	TxPayout      TransactionType = "payout"       // Prize or stat credit
	TxDecay       TransactionType = "decay"        // Scheduled stat decay
	TxAdjustment  TransactionType = "adjustment"   // Manual admin correction
)

type Transaction struct {
	ID             TransactionID
	ActorID        ActorID
	Account        Account
	Delta          Amount
	Type           TransactionType
	ReferenceID    string
	Reason         string
	IdempotencyKey string
	CreatedAt      time.Time
}

// =============================================================================
// COOLDOWN RECORD - Last use of a rate-limited action
// =============================================================================

// CooldownRecord tracks the last time an actor performed a gated action.
// One record per (actor, scope) pair; scopes never interact.
type CooldownRecord struct {
	ActorID    ActorID
	ScopeKey   string
	LastUsedAt time.Time
}
