/*
request.go - Request approval lifecycle

PURPOSE:
  Handles the full lifecycle of establishment requests:
  1. Submit: Actor files a request with a cost and an effect
  2. Pending: Exactly one outstanding request per (actor, kind)
  3. Approve: Cost is debited, effects apply, request becomes terminal
  4. Reject: Request becomes terminal with no side effect

REQUEST FLOW:

  Actor submits      Record as        Reviewer          On approve:
  request       ──▶  pending     ──▶  approves/    ──▶  debit cost +
                                      rejects           apply effects

DEBIT TIMING:
  Nothing is debited at submission. The cost settles when a reviewer
  approves, for every kind - consultations, orders, and documents all
  follow the same pay-on-approval policy. A requester who spent their
  coins while the request sat pending gets an insufficient-funds failure
  at approval time and the request stays pending.

DOUBLE-REVIEW SAFETY:
  Approval runs inside one store transaction and flips the status with a
  conditional update keyed on the current status. Under concurrent
  double-approval exactly one call wins; the other observes
  ErrAlreadyResolved and has no effect.

EXAMPLE:
  eng := engine.NewRequestEngine(store)

  req, err := eng.Submit(ctx, "actor-1", "hospital_consultation",
      engine.Coins(200), effect, "checkup")

  approved, err := eng.Review(ctx, req.ID, "doctor-9", engine.DecisionApprove, "")

SEE ALSO:
  - ledger.go: Balance accounting used on approval
  - store.go: ResolveRequest conditional update
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// REQUEST - A pending-approval action
// =============================================================================

type RequestID string

type RequestKind string

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// IsTerminal reports whether a status permits no further transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestApproved || s == RequestRejected
}

// Request represents a pending-approval action: a tavern order, a hospital
// consultation, a bank document. Once terminal, a request is immutable.
type Request struct {
	ID          RequestID
	RequesterID ActorID
	Kind        RequestKind

	// Cost in coins, debited from the requester on approval. May be zero.
	Cost Amount

	// Effect applied on approval, after the cost settles.
	Effect EffectSpec

	Status RequestStatus
	Note   string

	// Review tracking
	ReviewerID     string
	ResolutionNote string
	ResolvedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectSpec describes the side effects of an approved request beyond the
// cost debit. Stat credits are clamped at their caps.
type EffectSpec struct {
	Credits []StatCredit
}

// StatCredit adds points to a stat account, never exceeding Cap.
type StatCredit struct {
	Account Account
	Amount  Amount
	Cap     Amount
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// =============================================================================
// REQUEST ENGINE - Lifecycle orchestration
// =============================================================================

type RequestEngine struct {
	Store TxStore
	Now   func() time.Time
	NewID func() string

	// CoinAccount is where request costs are debited from.
	CoinAccount Account
}

func NewRequestEngine(store TxStore, coinAccount Account) *RequestEngine {
	return &RequestEngine{
		Store:       store,
		Now:         func() time.Time { return time.Now().UTC() },
		NewID:       uuid.NewString,
		CoinAccount: coinAccount,
	}
}

// Submit files a new request. The cost is validated but not debited;
// settlement happens on approval.
func (e *RequestEngine) Submit(
	ctx context.Context,
	requesterID ActorID,
	kind RequestKind,
	cost Amount,
	effect EffectSpec,
	note string,
) (*Request, error) {
	if cost.IsNegative() {
		return nil, fmt.Errorf("%w: cost must not be negative, got %v", ErrInvalidAmount, cost.Value)
	}
	if cost.Unit == UnitCoins && !cost.IsWhole() {
		return nil, fmt.Errorf("%w: coins are whole-valued, got %v", ErrInvalidAmount, cost.Value)
	}

	existing, err := e.Store.PendingRequestFor(ctx, requesterID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if existing != nil {
		return nil, &DuplicatePendingRequestError{
			RequesterID: requesterID,
			Kind:        kind,
			ExistingID:  existing.ID,
		}
	}

	now := e.Now()
	request := &Request{
		ID:          RequestID(e.NewID()),
		RequesterID: requesterID,
		Kind:        kind,
		Cost:        cost,
		Effect:      effect,
		Status:      RequestPending,
		Note:        note,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.Store.SaveRequest(ctx, *request); err != nil {
		return nil, fmt.Errorf("failed to save request: %w", err)
	}

	return request, nil
}

// Review resolves a pending request. Approval debits the cost and applies
// the effect atomically with the status flip; rejection has no side effect.
func (e *RequestEngine) Review(
	ctx context.Context,
	id RequestID,
	reviewerID string,
	decision Decision,
	note string,
) (*Request, error) {
	switch decision {
	case DecisionApprove, DecisionReject:
	default:
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidStateTransition, decision)
	}

	now := e.Now()
	var reviewed *Request

	err := e.Store.WithTx(ctx, func(s Store) error {
		request, err := s.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if request == nil {
			return fmt.Errorf("%w: request %s", ErrNotFound, id)
		}
		if request.Status.IsTerminal() {
			return fmt.Errorf("%w: request %s is %s", ErrAlreadyResolved, id, request.Status)
		}

		status := RequestRejected
		if decision == DecisionApprove {
			status = RequestApproved
			if err := e.applyEffects(ctx, s, request, now); err != nil {
				return err
			}
		}

		resolved, err := s.ResolveRequest(ctx, id, status, reviewerID, note, now)
		if err != nil {
			return err
		}
		if !resolved {
			// Lost the race to another reviewer; roll everything back.
			return fmt.Errorf("%w: request %s", ErrAlreadyResolved, id)
		}

		request.Status = status
		request.ReviewerID = reviewerID
		request.ResolutionNote = note
		request.ResolvedAt = &now
		request.UpdatedAt = now
		reviewed = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reviewed, nil
}

// applyEffects settles the cost and stat credits inside the review transaction.
func (e *RequestEngine) applyEffects(ctx context.Context, s Store, request *Request, now time.Time) error {
	if request.Cost.IsPositive() {
		available, err := balanceOf(ctx, s, request.RequesterID, e.CoinAccount)
		if err != nil {
			return err
		}
		if available.LessThan(request.Cost) {
			return &InsufficientFundsError{
				ActorID:   request.RequesterID,
				Available: available,
				Requested: request.Cost,
			}
		}

		err = s.Append(ctx, Transaction{
			ID:             TransactionID(e.NewID()),
			ActorID:        request.RequesterID,
			Account:        e.CoinAccount,
			Delta:          request.Cost.Neg(),
			Type:           TxConsumption,
			ReferenceID:    string(request.ID),
			Reason:         string(request.Kind),
			IdempotencyKey: fmt.Sprintf("%s-settle", request.ID),
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
	}

	for i, credit := range request.Effect.Credits {
		current, err := balanceOf(ctx, s, request.RequesterID, credit.Account)
		if err != nil {
			return err
		}
		headroom := credit.Cap.Sub(current)
		if !headroom.IsPositive() {
			continue
		}

		err = s.Append(ctx, Transaction{
			ID:             TransactionID(e.NewID()),
			ActorID:        request.RequesterID,
			Account:        credit.Account,
			Delta:          credit.Amount.Min(headroom),
			Type:           TxPayout,
			ReferenceID:    string(request.ID),
			Reason:         string(request.Kind),
			IdempotencyKey: fmt.Sprintf("%s-effect-%d", request.ID, i),
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
