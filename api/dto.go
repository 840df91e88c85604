/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/yunhopapisaoko-dot/township/engine"
)

// =============================================================================
// ACTORS
// =============================================================================

// ActorDTO represents an actor in API responses.
type ActorDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateActorRequest is the request to create an actor.
type CreateActorRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BalanceDTO summarizes every account an actor holds.
type BalanceDTO struct {
	ActorID string `json:"actor_id"`
	Coins   string `json:"coins"`
	Health  string `json:"health"`
	Hunger  string `json:"hunger"`
}

// TransactionDTO represents one ledger entry.
type TransactionDTO struct {
	ID          string `json:"id"`
	Account     string `json:"account"`
	Delta       string `json:"delta"`
	Unit        string `json:"unit"`
	Type        string `json:"type"`
	ReferenceID string `json:"reference_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// =============================================================================
// BANK
// =============================================================================

// TransferRequest is the request to move coins between actors.
type TransferRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// SubmitRequestBody is the shared shape of the establishment request bodies.
type SubmitRequestBody struct {
	ActorID string `json:"actor_id"`
	Note    string `json:"note,omitempty"`
}

// OrderRequest is the request to order a tavern dish.
type OrderRequest struct {
	ActorID string `json:"actor_id"`
	ItemID  string `json:"item_id"`
	Note    string `json:"note,omitempty"`
}

// RequestDTO represents a lifecycle request in API responses.
type RequestDTO struct {
	ID             string `json:"id"`
	RequesterID    string `json:"requester_id"`
	Kind           string `json:"kind"`
	Cost           string `json:"cost"`
	Status         string `json:"status"`
	Note           string `json:"note,omitempty"`
	ReviewerID     string `json:"reviewer_id,omitempty"`
	ResolutionNote string `json:"resolution_note,omitempty"`
	ResolvedAt     string `json:"resolved_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// ReviewRequest is the body for approve/reject endpoints.
type ReviewRequest struct {
	Note string `json:"note,omitempty"`
}

// =============================================================================
// ROULETTE
// =============================================================================

// SpinDTO represents a roulette draw in API responses.
type SpinDTO struct {
	ID         string `json:"id"`
	ActorID    string `json:"actor_id"`
	Category   string `json:"category"`
	PrizeID    string `json:"prize_id"`
	PrizeLabel string `json:"prize_label"`
	PrizeKind  string `json:"prize_kind"`
	PrizeValue int64  `json:"prize_value"`
	DrawnAt    string `json:"drawn_at"`
}

// CooldownDTO reports availability of a gated action.
type CooldownDTO struct {
	Allowed          bool   `json:"allowed"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Remaining        string `json:"remaining,omitempty"`
}

// =============================================================================
// ACCESS
// =============================================================================

// ElevateRequest presents a scope secret for role elevation.
type ElevateRequest struct {
	ScopeID string `json:"scope_id"`
	Secret  string `json:"secret"`
}

// GrantDTO is a successful elevation.
type GrantDTO struct {
	ScopeID   string `json:"scope_id"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRequestDTO(r *engine.Request) RequestDTO {
	dto := RequestDTO{
		ID:             string(r.ID),
		RequesterID:    string(r.RequesterID),
		Kind:           string(r.Kind),
		Cost:           r.Cost.Value.String(),
		Status:         string(r.Status),
		Note:           r.Note,
		ReviewerID:     r.ReviewerID,
		ResolutionNote: r.ResolutionNote,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
	if r.ResolvedAt != nil {
		dto.ResolvedAt = r.ResolvedAt.Format(time.RFC3339)
	}
	return dto
}

func toCooldownDTO(status engine.CooldownStatus) CooldownDTO {
	dto := CooldownDTO{
		Allowed:          status.Allowed,
		RemainingSeconds: int64(status.Remaining.Seconds()),
	}
	if !status.Allowed {
		dto.Remaining = status.Remaining.Round(time.Second).String()
	}
	return dto
}
