/*
handlers.go - HTTP API handlers for the township economy

PURPOSE:
  Exposes the establishment economy via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Actors:
    GET    /api/actors                   List all actors
    POST   /api/actors                   Create actor (with opening grant)
    GET    /api/actors/{id}              Get actor details
    GET    /api/actors/{id}/balance      Coins + health + hunger
    GET    /api/actors/{id}/transactions Ledger history
    GET    /api/actors/{id}/requests     Request history

  Bank:
    POST   /api/bank/transfer            Move coins between actors
    POST   /api/bank/documents           File a document request

  Hospital:
    POST   /api/hospital/consultations   File a consultation request
    GET    /api/hospital/rancho          Rancho heal availability
    POST   /api/hospital/rancho          Daily full heal

  Tavern:
    GET    /api/tavern/menu              Orderable dishes
    POST   /api/tavern/orders            File an order request

  Roulette:
    GET    /api/roulette/status          Spin availability
    POST   /api/roulette/spin            Daily spin
    GET    /api/roulette/spins           Spin history

  Access:
    POST   /api/access/elevate           Secret -> capability token

  Review (token-gated):
    GET    /api/requests/pending         Pending requests for the scope
    POST   /api/requests/{id}/approve    Approve (settles cost + effect)
    POST   /api/requests/{id}/reject     Reject (no side effect)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, insufficient funds
  - 401: Bad secret or capability token
  - 403: Token scope doesn't cover the request kind
  - 404: Resource not found
  - 409: Conflict (duplicate pending, already resolved)
  - 429: Cooldown active
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/yunhopapisaoko-dot/township/access"
	"github.com/yunhopapisaoko-dot/township/bank"
	"github.com/yunhopapisaoko-dot/township/engine"
	"github.com/yunhopapisaoko-dot/township/hospital"
	"github.com/yunhopapisaoko-dot/township/roulette"
	"github.com/yunhopapisaoko-dot/township/store/sqlite"
	"github.com/yunhopapisaoko-dot/township/tavern"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Ledger   engine.Ledger
	Engine   *engine.RequestEngine
	Bank     *bank.Service
	Hospital *hospital.Service
	Tavern   *tavern.Service
	Roulette *roulette.Service
	Keeper   *access.Keeper
	Log      zerolog.Logger

	// OpeningGrant is credited to every newly created actor.
	OpeningGrant engine.Amount
}

// scopeForKind maps a request kind to the scope whose staff review it.
func scopeForKind(kind engine.RequestKind) string {
	switch kind {
	case bank.KindDocument:
		return "bank"
	case hospital.KindConsultation:
		return "hospital"
	case tavern.KindOrder:
		return "tavern"
	default:
		return ""
	}
}

// =============================================================================
// ACTOR HANDLERS
// =============================================================================

// ListActors returns all actors.
func (h *Handler) ListActors(w http.ResponseWriter, r *http.Request) {
	actors, err := h.Store.ListActors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actors", err)
		return
	}

	dtos := make([]ActorDTO, len(actors))
	for i, a := range actors {
		dtos[i] = ActorDTO{
			ID:        a.ID,
			Name:      a.Name,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// CreateActor registers an actor and credits the opening grant.
func (h *Handler) CreateActor(w http.ResponseWriter, r *http.Request) {
	var req CreateActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	ctx := r.Context()
	existing, err := h.Store.GetActor(ctx, req.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check actor", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Actor already exists", nil)
		return
	}

	actor := sqlite.Actor{ID: req.ID, Name: req.Name, CreatedAt: time.Now().UTC()}
	if err := h.Store.SaveActor(ctx, actor); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save actor", err)
		return
	}

	if h.OpeningGrant.IsPositive() {
		if err := h.Bank.OpeningGrant(ctx, engine.ActorID(actor.ID), h.OpeningGrant); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to credit opening grant", err)
			return
		}
	}

	h.Log.Info().Str("actor_id", actor.ID).Msg("actor created")

	writeJSON(w, http.StatusCreated, ActorDTO{
		ID:        actor.ID,
		Name:      actor.Name,
		CreatedAt: actor.CreatedAt.Format(time.RFC3339),
	})
}

// GetActor returns a single actor.
func (h *Handler) GetActor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	actor, err := h.Store.GetActor(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get actor", err)
		return
	}
	if actor == nil {
		writeError(w, http.StatusNotFound, "Actor not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, ActorDTO{
		ID:        actor.ID,
		Name:      actor.Name,
		CreatedAt: actor.CreatedAt.Format(time.RFC3339),
	})
}

// GetBalance returns coins, health, and hunger for an actor.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := engine.ActorID(chi.URLParam(r, "id"))
	ctx := r.Context()

	coins, err := h.Ledger.BalanceOf(ctx, id, bank.AccountCoins)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read coins", err)
		return
	}
	health, err := h.Ledger.BalanceOf(ctx, id, hospital.AccountHealth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read health", err)
		return
	}
	hunger, err := h.Ledger.BalanceOf(ctx, id, tavern.AccountHunger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read hunger", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		ActorID: string(id),
		Coins:   coins.Value.String(),
		Health:  health.Value.String(),
		Hunger:  hunger.Value.String(),
	})
}

// GetTransactions returns the actor's full ledger history.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := engine.ActorID(chi.URLParam(r, "id"))

	txs, err := h.Store.LoadByActor(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = TransactionDTO{
			ID:          string(tx.ID),
			Account:     tx.Account.AccountID(),
			Delta:       tx.Delta.Value.String(),
			Unit:        string(tx.Delta.Unit),
			Type:        string(tx.Type),
			ReferenceID: tx.ReferenceID,
			Reason:      tx.Reason,
			CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetActorRequests returns the actor's request history, newest first.
func (h *Handler) GetActorRequests(w http.ResponseWriter, r *http.Request) {
	id := engine.ActorID(chi.URLParam(r, "id"))

	requests, err := h.Store.RequestsByActor(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load requests", err)
		return
	}

	dtos := make([]RequestDTO, len(requests))
	for i := range requests {
		dtos[i] = toRequestDTO(&requests[i])
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BANK HANDLERS
// =============================================================================

// Transfer moves coins between two actors.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FromID == "" || req.ToID == "" {
		writeError(w, http.StatusBadRequest, "from_id and to_id are required", nil)
		return
	}
	if req.FromID == req.ToID {
		writeError(w, http.StatusBadRequest, "cannot transfer to self", nil)
		return
	}

	err := h.Bank.Transfer(r.Context(),
		engine.ActorID(req.FromID), engine.ActorID(req.ToID),
		engine.Coins(req.Amount), req.Reason)
	if err != nil {
		h.writeDomainError(w, "Transfer failed", err)
		return
	}

	h.Log.Info().
		Str("from", req.FromID).Str("to", req.ToID).Int64("amount", req.Amount).
		Msg("transfer completed")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RequestDocument files a bank document request.
func (h *Handler) RequestDocument(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ActorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}

	request, err := h.Bank.RequestDocument(r.Context(), engine.ActorID(req.ActorID), req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to file document request", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(request))
}

// =============================================================================
// HOSPITAL HANDLERS
// =============================================================================

// RequestConsultation files a consultation request.
func (h *Handler) RequestConsultation(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ActorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}

	request, err := h.Hospital.RequestConsultation(r.Context(), engine.ActorID(req.ActorID), req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to file consultation", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(request))
}

// RanchoStatus reports availability of the daily full heal.
func (h *Handler) RanchoStatus(w http.ResponseWriter, r *http.Request) {
	actorID := engine.ActorID(r.URL.Query().Get("actor_id"))
	if actorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}

	status, err := h.Hospital.RanchoStatus(r.Context(), actorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check rancho status", err)
		return
	}

	writeJSON(w, http.StatusOK, toCooldownDTO(status))
}

// RanchoHeal fully restores health and hunger, once per day.
func (h *Handler) RanchoHeal(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ActorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}

	if err := h.Hospital.RanchoHeal(r.Context(), engine.ActorID(req.ActorID)); err != nil {
		h.writeDomainError(w, "Rancho heal failed", err)
		return
	}

	h.Log.Info().Str("actor_id", req.ActorID).Msg("rancho heal applied")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// TAVERN HANDLERS
// =============================================================================

// GetMenu returns the orderable dishes.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tavern.Menu())
}

// OrderDish files a tavern order request.
func (h *Handler) OrderDish(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ActorID == "" || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "actor_id and item_id are required", nil)
		return
	}

	request, err := h.Tavern.Order(r.Context(), engine.ActorID(req.ActorID), req.ItemID, req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to file order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(request))
}

// =============================================================================
// ROULETTE HANDLERS
// =============================================================================

// SpinStatus reports availability of the daily spin.
func (h *Handler) SpinStatus(w http.ResponseWriter, r *http.Request) {
	actorID := engine.ActorID(r.URL.Query().Get("actor_id"))
	if actorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}

	status, err := h.Roulette.Status(r.Context(), actorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check spin status", err)
		return
	}

	writeJSON(w, http.StatusOK, toCooldownDTO(status))
}

// Spin draws and applies a roulette outcome.
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ActorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}

	rec, err := h.Roulette.Spin(r.Context(), engine.ActorID(req.ActorID))
	if err != nil {
		h.writeDomainError(w, "Spin failed", err)
		return
	}

	h.Log.Info().
		Str("actor_id", req.ActorID).
		Str("category", rec.Outcome.Category).
		Str("prize", rec.Outcome.Prize.ID).
		Msg("roulette spin")

	writeJSON(w, http.StatusOK, toSpinDTO(*rec))
}

// SpinHistory returns an actor's most recent spins.
func (h *Handler) SpinHistory(w http.ResponseWriter, r *http.Request) {
	actorID := engine.ActorID(r.URL.Query().Get("actor_id"))
	if actorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recs, err := h.Roulette.Spins(r.Context(), actorID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load spin history", err)
		return
	}

	dtos := make([]SpinDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toSpinDTO(rec)
	}

	writeJSON(w, http.StatusOK, dtos)
}

func toSpinDTO(rec roulette.SpinRecord) SpinDTO {
	return SpinDTO{
		ID:         rec.ID,
		ActorID:    string(rec.ActorID),
		Category:   rec.Outcome.Category,
		PrizeID:    rec.Outcome.Prize.ID,
		PrizeLabel: rec.Outcome.Prize.Label,
		PrizeKind:  rec.Outcome.Prize.Kind,
		PrizeValue: rec.Outcome.Prize.Value,
		DrawnAt:    rec.DrawnAt.Format(time.RFC3339),
	}
}

// =============================================================================
// ACCESS HANDLERS
// =============================================================================

// Elevate exchanges a scope secret for a capability token.
func (h *Handler) Elevate(w http.ResponseWriter, r *http.Request) {
	var req ElevateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ScopeID == "" || req.Secret == "" {
		writeError(w, http.StatusBadRequest, "scope_id and secret are required", nil)
		return
	}

	grant, err := h.Keeper.Elevate(req.Secret, req.ScopeID)
	if err != nil {
		if errors.Is(err, access.ErrUnknownScope) {
			writeError(w, http.StatusNotFound, "Unknown scope", nil)
			return
		}
		if errors.Is(err, engine.ErrInvalidSecret) {
			writeError(w, http.StatusUnauthorized, "Invalid secret", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Elevation failed", err)
		return
	}

	h.Log.Info().Str("scope", grant.ScopeID).Str("role", string(grant.Role)).Msg("role elevated")

	writeJSON(w, http.StatusOK, GrantDTO{
		ScopeID:   grant.ScopeID,
		Role:      string(grant.Role),
		Token:     grant.Token,
		ExpiresAt: grant.ExpiresAt.Format(time.RFC3339),
	})
}

// =============================================================================
// REVIEW HANDLERS (token-gated)
// =============================================================================

// ListPendingRequests returns pending requests the token's scope may review.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	requests, err := h.Store.PendingRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load pending requests", err)
		return
	}

	dtos := []RequestDTO{}
	for i := range requests {
		if scopeForKind(requests[i].Kind) != claims.ScopeID {
			continue
		}
		dtos = append(dtos, toRequestDTO(&requests[i]))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// ApproveRequest approves a pending request, settling cost and effects.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, engine.DecisionApprove)
}

// RejectRequest rejects a pending request with no side effects.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, engine.DecisionReject)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, decision engine.Decision) {
	claims := claimsFrom(r.Context())
	id := engine.RequestID(chi.URLParam(r, "id"))

	var body ReviewRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	request, err := h.Store.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load request", err)
		return
	}
	if request == nil {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return
	}
	if scopeForKind(request.Kind) != claims.ScopeID {
		writeError(w, http.StatusForbidden, "Request belongs to another establishment", nil)
		return
	}

	reviewerID := claims.ScopeID + "/" + string(claims.Role)
	reviewed, err := h.Engine.Review(r.Context(), id, reviewerID, decision, body.Note)
	if err != nil {
		h.writeDomainError(w, "Review failed", err)
		return
	}

	h.Log.Info().
		Str("request_id", string(id)).
		Str("decision", string(decision)).
		Str("reviewer", reviewerID).
		Msg("request reviewed")

	writeJSON(w, http.StatusOK, toRequestDTO(reviewed))
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// writeDomainError maps engine errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrAlreadyResolved),
		errors.Is(err, engine.ErrDuplicatePendingRequest),
		errors.Is(err, engine.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, engine.ErrCooldownActive):
		writeError(w, http.StatusTooManyRequests, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

type contextKey string

const claimsKey contextKey = "access-claims"

func contextWithClaims(ctx context.Context, claims *access.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func claimsFrom(ctx context.Context) *access.Claims {
	claims, _ := ctx.Value(claimsKey).(*access.Claims)
	return claims
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
