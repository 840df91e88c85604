package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yunhopapisaoko-dot/township/access"
	"github.com/yunhopapisaoko-dot/township/api"
	"github.com/yunhopapisaoko-dot/township/bank"
	"github.com/yunhopapisaoko-dot/township/engine"
	"github.com/yunhopapisaoko-dot/township/factory"
	"github.com/yunhopapisaoko-dot/township/hospital"
	"github.com/yunhopapisaoko-dot/township/roulette"
	"github.com/yunhopapisaoko-dot/township/store/sqlite"
	"github.com/yunhopapisaoko-dot/township/tavern"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	router http.Handler
	store  *sqlite.Store
}

// newTestServer wires the full stack over an in-memory database, using the
// built-in preset town.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	town, err := factory.ParseTown([]byte(factory.DefaultTownJSON()))
	require.NoError(t, err)

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ledger := engine.NewLedger(st)
	reqEngine := engine.NewRequestEngine(st, bank.AccountCoins)
	gate := engine.NewCooldownGate(st)

	table, err := town.OutcomeTable()
	require.NoError(t, err)

	handler := &api.Handler{
		Store:        st,
		Ledger:       ledger,
		Engine:       reqEngine,
		Bank:         bank.NewService(ledger, reqEngine, town.DocumentFee),
		Hospital:     hospital.NewService(ledger, reqEngine, gate),
		Tavern:       tavern.NewService(ledger, reqEngine, town.Menu),
		Roulette:     roulette.NewService(ledger, gate, table, &spinHistory{store: st}),
		Keeper:       access.NewKeeper(town.Scopes, []byte("test-signing-key-0123456789"), 12*time.Hour),
		Log:          zerolog.Nop(),
		OpeningGrant: town.OpeningGrant,
	}

	return &testServer{router: api.NewRouter(handler), store: st}
}

// spinHistory adapts the sqlite store to the roulette history interface,
// mirroring the production wiring.
type spinHistory struct {
	store *sqlite.Store
}

func (h *spinHistory) SaveSpin(ctx context.Context, rec roulette.SpinRecord) error {
	return h.store.SaveSpinOutcome(ctx, sqlite.SpinOutcome{
		ID:         rec.ID,
		ActorID:    string(rec.ActorID),
		Category:   rec.Outcome.Category,
		PrizeID:    rec.Outcome.Prize.ID,
		PrizeKind:  rec.Outcome.Prize.Kind,
		PrizeLabel: rec.Outcome.Prize.Label,
		PrizeValue: rec.Outcome.Prize.Value,
		DrawnAt:    rec.DrawnAt,
	})
}

func (h *spinHistory) SpinsByActor(ctx context.Context, actorID engine.ActorID, limit int) ([]roulette.SpinRecord, error) {
	outcomes, err := h.store.SpinOutcomesByActor(ctx, string(actorID), limit)
	if err != nil {
		return nil, err
	}
	recs := make([]roulette.SpinRecord, len(outcomes))
	for i, o := range outcomes {
		recs[i] = roulette.SpinRecord{
			ID:      o.ID,
			ActorID: engine.ActorID(o.ActorID),
			Outcome: engine.Outcome{
				Category: o.Category,
				Prize:    engine.Prize{ID: o.PrizeID, Label: o.PrizeLabel, Kind: o.PrizeKind, Value: o.PrizeValue},
			},
			DrawnAt: o.DrawnAt,
		}
	}
	return recs, nil
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func (s *testServer) createActor(t *testing.T, id, name string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/actors", api.CreateActorRequest{ID: id, Name: name}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) elevate(t *testing.T, scopeID, secret string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/access/elevate", api.ElevateRequest{ScopeID: scopeID, Secret: secret}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[api.GrantDTO](t, rec).Token
}

// =============================================================================
// ACTORS
// =============================================================================

func TestAPI_CreateActor_OpeningGrant(t *testing.T) {
	// GIVEN: A fresh town
	// WHEN: An actor is created
	// THEN: Their balance starts with the opening grant

	s := newTestServer(t)
	s.createActor(t, "alice", "Alice")

	rec := s.do(t, http.MethodGet, "/api/actors/alice/balance", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	balance := decode[api.BalanceDTO](t, rec)
	assert.Equal(t, "1000", balance.Coins)
	assert.Equal(t, "0", balance.Health)
	assert.Equal(t, "0", balance.Hunger)
}

func TestAPI_CreateActor_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/actors", api.CreateActorRequest{ID: "", Name: "Nameless"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.createActor(t, "alice", "Alice")
	rec = s.do(t, http.MethodPost, "/api/actors", api.CreateActorRequest{ID: "alice", Name: "Alice Again"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// BANK
// =============================================================================

func TestAPI_Transfer(t *testing.T) {
	// GIVEN: Two funded actors
	// WHEN: Alice sends Bob 400 coins
	// THEN: Balances shift; an oversized transfer is a client error

	s := newTestServer(t)
	s.createActor(t, "alice", "Alice")
	s.createActor(t, "bob", "Bob")

	rec := s.do(t, http.MethodPost, "/api/bank/transfer",
		api.TransferRequest{FromID: "alice", ToID: "bob", Amount: 400, Reason: "rent"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	balance := decode[api.BalanceDTO](t, s.do(t, http.MethodGet, "/api/actors/bob/balance", nil, ""))
	assert.Equal(t, "1400", balance.Coins)

	rec = s.do(t, http.MethodPost, "/api/bank/transfer",
		api.TransferRequest{FromID: "alice", ToID: "bob", Amount: 5000}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/bank/transfer",
		api.TransferRequest{FromID: "alice", ToID: "alice", Amount: 10}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ACCESS
// =============================================================================

func TestAPI_Elevate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/access/elevate",
		api.ElevateRequest{ScopeID: "bank", Secret: "teller-pass"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	grant := decode[api.GrantDTO](t, rec)
	assert.Equal(t, "employee", grant.Role)
	assert.NotEmpty(t, grant.Token)

	rec = s.do(t, http.MethodPost, "/api/access/elevate",
		api.ElevateRequest{ScopeID: "bank", Secret: "vault-pass"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manager", decode[api.GrantDTO](t, rec).Role)

	rec = s.do(t, http.MethodPost, "/api/access/elevate",
		api.ElevateRequest{ScopeID: "bank", Secret: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/access/elevate",
		api.ElevateRequest{ScopeID: "bakery", Secret: "teller-pass"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// REVIEW FLOW
// =============================================================================

func TestAPI_DocumentReviewFlow(t *testing.T) {
	// GIVEN: Alice files a document request
	// WHEN: A bank teller elevates, lists pending, and approves
	// THEN: The fee settles once; a second approval conflicts

	s := newTestServer(t)
	s.createActor(t, "alice", "Alice")

	rec := s.do(t, http.MethodPost, "/api/bank/documents",
		api.SubmitRequestBody{ActorID: "alice", Note: "residence certificate"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	filed := decode[api.RequestDTO](t, rec)
	assert.Equal(t, "pending", filed.Status)

	token := s.elevate(t, "bank", "teller-pass")

	rec = s.do(t, http.MethodGet, "/api/requests/pending", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[[]api.RequestDTO](t, rec)
	require.Len(t, pending, 1)
	assert.Equal(t, filed.ID, pending[0].ID)

	rec = s.do(t, http.MethodPost, "/api/requests/"+filed.ID+"/approve",
		api.ReviewRequest{Note: "papers in order"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[api.RequestDTO](t, rec)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "bank/employee", approved.ReviewerID)

	balance := decode[api.BalanceDTO](t, s.do(t, http.MethodGet, "/api/actors/alice/balance", nil, ""))
	assert.Equal(t, "950", balance.Coins)

	rec = s.do(t, http.MethodPost, "/api/requests/"+filed.ID+"/approve", nil, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_Review_ScopeMismatch(t *testing.T) {
	// GIVEN: A pending bank document and a tavern employee's token
	// WHEN: The tavern employee tries to approve it
	// THEN: Forbidden

	s := newTestServer(t)
	s.createActor(t, "alice", "Alice")

	rec := s.do(t, http.MethodPost, "/api/bank/documents", api.SubmitRequestBody{ActorID: "alice"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	filed := decode[api.RequestDTO](t, rec)

	tavernToken := s.elevate(t, "tavern", "server-pass")

	rec = s.do(t, http.MethodPost, "/api/requests/"+filed.ID+"/approve", nil, tavernToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	pending := decode[[]api.RequestDTO](t, s.do(t, http.MethodGet, "/api/requests/pending", nil, tavernToken))
	assert.Empty(t, pending, "bank documents are invisible to tavern staff")
}

func TestAPI_Review_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/requests/pending", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/requests/pending", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =============================================================================
// TAVERN
// =============================================================================

func TestAPI_Tavern_MenuAndOrder(t *testing.T) {
	s := newTestServer(t)
	s.createActor(t, "alice", "Alice")

	rec := s.do(t, http.MethodGet, "/api/tavern/menu", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	menu := decode[[]tavern.MenuItem](t, rec)
	assert.Len(t, menu, 4)

	rec = s.do(t, http.MethodPost, "/api/tavern/orders",
		api.OrderRequest{ActorID: "alice", ItemID: "stew"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[api.RequestDTO](t, rec)
	assert.Equal(t, "60", order.Cost)

	rec = s.do(t, http.MethodPost, "/api/tavern/orders",
		api.OrderRequest{ActorID: "alice", ItemID: "dragon-steak"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// COOLDOWNS OVER HTTP
// =============================================================================

func TestAPI_RanchoHeal_CooldownMapsTo429(t *testing.T) {
	// GIVEN: Alice already used the rancho heal
	// WHEN: She tries again immediately
	// THEN: 429 with the cooldown details

	s := newTestServer(t)
	s.createActor(t, "alice", "Alice")

	rec := s.do(t, http.MethodPost, "/api/hospital/rancho", api.SubmitRequestBody{ActorID: "alice"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	balance := decode[api.BalanceDTO](t, s.do(t, http.MethodGet, "/api/actors/alice/balance", nil, ""))
	assert.Equal(t, "100", balance.Health)
	assert.Equal(t, "100", balance.Hunger)

	rec = s.do(t, http.MethodPost, "/api/hospital/rancho", api.SubmitRequestBody{ActorID: "alice"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	status := decode[api.CooldownDTO](t, s.do(t, http.MethodGet, "/api/hospital/rancho?actor_id=alice", nil, ""))
	assert.False(t, status.Allowed)
	assert.Positive(t, status.RemainingSeconds)
}

func TestAPI_Roulette_SpinOncePerDay(t *testing.T) {
	s := newTestServer(t)
	s.createActor(t, "alice", "Alice")

	rec := s.do(t, http.MethodPost, "/api/roulette/spin", api.SubmitRequestBody{ActorID: "alice"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	spin := decode[api.SpinDTO](t, rec)
	assert.NotEmpty(t, spin.Category)
	assert.NotEmpty(t, spin.PrizeID)

	rec = s.do(t, http.MethodPost, "/api/roulette/spin", api.SubmitRequestBody{ActorID: "alice"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	history := decode[[]api.SpinDTO](t, s.do(t, http.MethodGet, "/api/roulette/spins?actor_id=alice", nil, ""))
	require.Len(t, history, 1)
	assert.Equal(t, spin.ID, history[0].ID)
}
