/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Ledger errors - Balance rule violations
  2. Lifecycle errors - Illegal request transitions
  3. Gate errors - Cooldown and secret checks

PROPAGATION POLICY:
  Every error here is an expected, user-facing condition. Callers surface
  them as a message and leave state unchanged; nothing in this taxonomy is
  fatal. HTTP handlers map them with IsClientError / IsNotFound.

USAGE:
  Domain packages can wrap engine errors:

    if errors.Is(err, engine.ErrInsufficientFunds) {
        return &OrderDeclinedError{...}
    }

SEE ALSO:
  - ledger.go: Uses the balance errors
  - request.go: Uses the lifecycle errors
*/
package engine

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an operation is given a zero, negative,
	// or fractional-coin amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds is returned when a debit or transfer would take a
	// balance below zero. The operation has no effect.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidStateTransition is returned for a transition the lifecycle
	// does not define (e.g., rejecting an approved request).
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrAlreadyResolved is returned when reviewing a request that is no
	// longer pending. Expected under concurrent double-review; exactly one
	// reviewer wins.
	ErrAlreadyResolved = errors.New("request already resolved")

	// ErrDuplicatePendingRequest is returned when an actor submits a second
	// request of a kind that already has one pending.
	ErrDuplicatePendingRequest = errors.New("duplicate pending request")

	// ErrNotFound is returned when a referenced actor or request doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSecret is returned when a panel secret doesn't match the scope.
	ErrInvalidSecret = errors.New("invalid secret")

	// ErrCooldownActive is returned when a gated action is re-invoked before
	// its interval has elapsed.
	ErrCooldownActive = errors.New("cooldown active")

	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	ActorID   ActorID
	Available Amount
	Requested Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for %s: available %v, requested %v",
		e.ActorID, e.Available.Value, e.Requested.Value)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// CooldownActiveError carries the remaining wait for a gated action.
type CooldownActiveError struct {
	ActorID   ActorID
	ScopeKey  string
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("cooldown active for %s on %s: %s remaining",
		e.ActorID, e.ScopeKey, e.Remaining)
}

func (e *CooldownActiveError) Unwrap() error {
	return ErrCooldownActive
}

// DuplicatePendingRequestError identifies the request blocking a new submit.
type DuplicatePendingRequestError struct {
	RequesterID ActorID
	Kind        RequestKind
	ExistingID  RequestID
}

func (e *DuplicatePendingRequestError) Error() string {
	return fmt.Sprintf("request %s of kind %s is still pending for %s",
		e.ExistingID, e.Kind, e.RequesterID)
}

func (e *DuplicatePendingRequestError) Unwrap() error {
	return ErrDuplicatePendingRequest
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or
// a business rule the human can react to.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrAlreadyResolved) ||
		errors.Is(err, ErrDuplicatePendingRequest) ||
		errors.Is(err, ErrInvalidSecret) ||
		errors.Is(err, ErrCooldownActive) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
