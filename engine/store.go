/*
store.go - Persistence interfaces for the engine

PURPOSE:
  Defines the interface between the engine and the database. The Store
  handles the append-only transaction log, request records, and cooldown
  stamps. Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Transaction log + request records + cooldown stamps
  TxStore: Transactional operations (atomic multi-write)

APPEND-ONLY CONTRACT:
  The transaction log is append-only:
  - Append(): Single transaction write
  - AppendBatch(): Atomic multi-transaction write
  - NO Update() or Delete() methods exist
  Corrections are made via offsetting transactions, not edits.

CONDITIONAL RESOLUTION:
  ResolveRequest flips a request out of pending only if it is still pending,
  reporting whether the flip happened. This is the optimistic check that
  makes concurrent double-review safe: the second reviewer observes
  resolved=false and the engine reports ErrAlreadyResolved.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - engine/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Balance accounting on top of Store
  - request.go: Lifecycle engine on top of TxStore
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Persistence for transactions, requests, and cooldowns
// =============================================================================

// Store handles persistence for the engine.
// The transaction log portion is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists a transaction. Returns ErrDuplicateIdempotencyKey if
	// the idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Load returns all transactions for actor+account, ordered by CreatedAt.
	Load(ctx context.Context, actorID ActorID, account Account) ([]Transaction, error)

	// LoadByActor returns all transactions for an actor across all accounts.
	LoadByActor(ctx context.Context, actorID ActorID) ([]Transaction, error)

	// Exists checks if an idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)

	// SaveRequest inserts or updates a request record.
	SaveRequest(ctx context.Context, r Request) error

	// GetRequest returns a request by ID, or nil if absent.
	GetRequest(ctx context.Context, id RequestID) (*Request, error)

	// PendingRequestFor returns the pending request of a kind for an actor,
	// or nil if there is none.
	PendingRequestFor(ctx context.Context, requesterID ActorID, kind RequestKind) (*Request, error)

	// PendingRequests returns all pending requests, oldest first.
	PendingRequests(ctx context.Context) ([]Request, error)

	// RequestsByActor returns an actor's requests, newest first.
	RequestsByActor(ctx context.Context, requesterID ActorID) ([]Request, error)

	// ResolveRequest conditionally transitions a pending request to a
	// terminal status. Returns false if the request was no longer pending.
	ResolveRequest(ctx context.Context, id RequestID, to RequestStatus, reviewerID string, note string, at time.Time) (bool, error)

	// GetCooldown returns the cooldown record for (actor, scope), or nil.
	GetCooldown(ctx context.Context, actorID ActorID, scopeKey string) (*CooldownRecord, error)

	// StampCooldown records a use of a gated action, replacing any prior stamp.
	StampCooldown(ctx context.Context, rec CooldownRecord) error
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
// Use this when a balance check and its writes must be one atomic unit.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
