/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements engine.TxStore plus the actor directory and spin history used
  by the HTTP layer. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The transaction log is append-only:
  - No UPDATE statements on the transactions table
  - No DELETE statements on the transactions table
  - Corrections via offsetting transactions only

KEY TABLES:
  transactions:  Immutable ledger of all balance changes
  requests:      Pending-approval actions with conditional resolution
  cooldowns:     Last-use stamp per (actor, scope)
  actors:        Actor directory
  spin_outcomes: Roulette draw history

INDEXES:
  - idx_transactions_actor_account: Balance replay (hot path)
  - idx_requests_one_pending: Partial unique index enforcing at most one
    pending request per (requester, kind) - the engine pre-checks for a
    clean error, the index backstops races
  - idx_transactions_idempotency: Retry safety

CONCURRENCY:
  Uses sync.RWMutex around access so WithTx bodies (balance check + append +
  status flip) are serialized. SQLite runs in WAL mode: readers don't
  block, one writer at a time.

USAGE:
  store, err := sqlite.New("./data/township.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := engine.NewLedger(store)

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/yunhopapisaoko-dot/township/engine"
)

// Store implements engine.TxStore plus the actor and spin history stores.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows one writer anyway, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		account TEXT NOT NULL,
		delta_value TEXT NOT NULL,
		delta_unit TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_actor_account
		ON transactions(actor_id, account, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_id) WHERE reference_id IS NOT NULL;

	-- Requests (approval workflow)
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		requester_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		cost_value TEXT NOT NULL,
		cost_unit TEXT NOT NULL,
		effect_json TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		note TEXT,
		reviewer_id TEXT,
		resolution_note TEXT,
		resolved_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_requester
		ON requests(requester_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);

	-- CRITICAL: at most one pending request per (requester, kind).
	-- The engine pre-checks for a clean error; this backstops races.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_one_pending
		ON requests(requester_id, kind)
		WHERE status = 'pending';

	-- Cooldowns (one stamp per actor+scope)
	CREATE TABLE IF NOT EXISTS cooldowns (
		actor_id TEXT NOT NULL,
		scope_key TEXT NOT NULL,
		last_used_at TEXT NOT NULL,
		PRIMARY KEY (actor_id, scope_key)
	);

	-- Actors
	CREATE TABLE IF NOT EXISTS actors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Roulette spin history
	CREATE TABLE IF NOT EXISTS spin_outcomes (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		category TEXT NOT NULL,
		prize_id TEXT NOT NULL,
		prize_kind TEXT NOT NULL,
		prize_label TEXT NOT NULL,
		prize_value INTEGER NOT NULL,
		drawn_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_spin_outcomes_actor
		ON spin_outcomes(actor_id, drawn_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTION LOG
// =============================================================================

// Append adds a transaction to the ledger.
func (s *Store) Append(ctx context.Context, tx engine.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendTx(ctx, s.db, tx)
}

func appendTx(ctx context.Context, db dbtx, tx engine.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, actor_id, account, delta_value, delta_unit, tx_type, reference_id, reason, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		tx.ID,
		tx.ActorID,
		tx.Account.AccountID(),
		tx.Delta.Value.String(),
		tx.Delta.Unit,
		tx.Type,
		nullString(tx.ReferenceID),
		nullString(tx.Reason),
		nullString(tx.IdempotencyKey),
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	return nil
}

// AppendBatch adds multiple transactions atomically.
func (s *Store) AppendBatch(ctx context.Context, txs []engine.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, tx := range txs {
		if err := appendTx(ctx, sqlTx, tx); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// Load returns all transactions for an actor+account, oldest first.
func (s *Store) Load(ctx context.Context, actorID engine.ActorID, account engine.Account) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadTransactions(ctx, s.db, actorID, account)
}

func loadTransactions(ctx context.Context, db dbtx, actorID engine.ActorID, account engine.Account) ([]engine.Transaction, error) {
	query := transactionSelect + `
		WHERE actor_id = ? AND account = ?
		ORDER BY created_at ASC, id ASC
	`

	return queryTransactions(ctx, db, query, actorID, account.AccountID())
}

// LoadByActor returns all transactions for an actor across all accounts.
func (s *Store) LoadByActor(ctx context.Context, actorID engine.ActorID) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadByActor(ctx, s.db, actorID)
}

func loadByActor(ctx context.Context, db dbtx, actorID engine.ActorID) ([]engine.Transaction, error) {
	query := transactionSelect + `
		WHERE actor_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return queryTransactions(ctx, db, query, actorID)
}

// Exists checks if an idempotency key has been used.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return idempotencyKeyExists(ctx, s.db, idempotencyKey)
}

func idempotencyKeyExists(ctx context.Context, db dbtx, idempotencyKey string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

const transactionSelect = `
	SELECT id, actor_id, account, delta_value, delta_unit, tx_type, reference_id, reason, idempotency_key, created_at
	FROM transactions
`

func queryTransactions(ctx context.Context, db dbtx, query string, args ...any) ([]engine.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []engine.Transaction
	for rows.Next() {
		var (
			tx             engine.Transaction
			accountID      string
			deltaValue     string
			deltaUnit      string
			referenceID    sql.NullString
			reason         sql.NullString
			idempotencyKey sql.NullString
			createdAt      string
		)

		err := rows.Scan(
			&tx.ID, &tx.ActorID, &accountID, &deltaValue, &deltaUnit,
			&tx.Type, &referenceID, &reason, &idempotencyKey, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.Account = engine.GetOrCreateAccount(accountID)
		tx.Delta = engine.Amount{Value: engine.MustParseDecimal(deltaValue), Unit: engine.Unit(deltaUnit)}
		tx.ReferenceID = referenceID.String
		tx.Reason = reason.String
		tx.IdempotencyKey = idempotencyKey.String
		tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// SaveRequest inserts a request or updates its review fields.
func (s *Store) SaveRequest(ctx context.Context, r engine.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveRequest(ctx, s.db, r)
}

func saveRequest(ctx context.Context, db dbtx, r engine.Request) error {
	effectJSON, err := json.Marshal(effectToJSON(r.Effect))
	if err != nil {
		return fmt.Errorf("failed to encode effect: %w", err)
	}

	query := `
		INSERT INTO requests (id, requester_id, kind, cost_value, cost_unit, effect_json,
			status, note, reviewer_id, resolution_note, resolved_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			reviewer_id = excluded.reviewer_id,
			resolution_note = excluded.resolution_note,
			resolved_at = excluded.resolved_at,
			updated_at = excluded.updated_at
	`

	var resolvedAt any
	if r.ResolvedAt != nil {
		resolvedAt = r.ResolvedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = db.ExecContext(ctx, query,
		r.ID, r.RequesterID, r.Kind,
		r.Cost.Value.String(), r.Cost.Unit,
		string(effectJSON),
		r.Status, r.Note, r.ReviewerID, r.ResolutionNote, resolvedAt,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
		r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicatePendingRequest
		}
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

// GetRequest retrieves a request by ID, or nil if absent.
func (s *Store) GetRequest(ctx context.Context, id engine.RequestID) (*engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, db dbtx, id engine.RequestID) (*engine.Request, error) {
	requests, err := queryRequests(ctx, db, requestSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

// PendingRequestFor returns an actor's pending request of a kind, or nil.
func (s *Store) PendingRequestFor(ctx context.Context, requesterID engine.ActorID, kind engine.RequestKind) (*engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return pendingRequestFor(ctx, s.db, requesterID, kind)
}

func pendingRequestFor(ctx context.Context, db dbtx, requesterID engine.ActorID, kind engine.RequestKind) (*engine.Request, error) {
	requests, err := queryRequests(ctx, db,
		requestSelect+" WHERE requester_id = ? AND kind = ? AND status = 'pending' LIMIT 1",
		requesterID, kind)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

// PendingRequests returns all pending requests, oldest first.
func (s *Store) PendingRequests(ctx context.Context) ([]engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryRequests(ctx, s.db, requestSelect+" WHERE status = 'pending' ORDER BY created_at ASC")
}

// RequestsByActor returns an actor's requests, newest first.
func (s *Store) RequestsByActor(ctx context.Context, requesterID engine.ActorID) ([]engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryRequests(ctx, s.db, requestSelect+" WHERE requester_id = ? ORDER BY created_at DESC", requesterID)
}

// ResolveRequest flips a pending request to a terminal status. The WHERE
// clause on status makes the update conditional: under concurrent
// double-review exactly one caller sees resolved=true.
func (s *Store) ResolveRequest(ctx context.Context, id engine.RequestID, to engine.RequestStatus, reviewerID string, note string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return resolveRequest(ctx, s.db, id, to, reviewerID, note, at)
}

func resolveRequest(ctx context.Context, db dbtx, id engine.RequestID, to engine.RequestStatus, reviewerID string, note string, at time.Time) (bool, error) {
	stamp := at.UTC().Format(time.RFC3339Nano)
	res, err := db.ExecContext(ctx, `
		UPDATE requests
		SET status = ?, reviewer_id = ?, resolution_note = ?, resolved_at = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`,
		to, reviewerID, note, stamp, stamp, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to resolve request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const requestSelect = `
	SELECT id, requester_id, kind, cost_value, cost_unit, effect_json,
		status, note, reviewer_id, resolution_note, resolved_at, created_at, updated_at
	FROM requests
`

func queryRequests(ctx context.Context, db dbtx, query string, args ...any) ([]engine.Request, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []engine.Request
	for rows.Next() {
		var (
			r              engine.Request
			costValue      string
			costUnit       string
			effectJSON     sql.NullString
			note           sql.NullString
			reviewerID     sql.NullString
			resolutionNote sql.NullString
			resolvedAt     sql.NullString
			createdAt      string
			updatedAt      string
		)

		if err := rows.Scan(
			&r.ID, &r.RequesterID, &r.Kind, &costValue, &costUnit, &effectJSON,
			&r.Status, &note, &reviewerID, &resolutionNote, &resolvedAt, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}

		r.Cost = engine.Amount{Value: engine.MustParseDecimal(costValue), Unit: engine.Unit(costUnit)}
		r.Note = note.String
		r.ReviewerID = reviewerID.String
		r.ResolutionNote = resolutionNote.String
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		if resolvedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, resolvedAt.String)
			r.ResolvedAt = &t
		}
		if effectJSON.Valid && effectJSON.String != "" {
			var ej effectModel
			if err := json.Unmarshal([]byte(effectJSON.String), &ej); err != nil {
				return nil, fmt.Errorf("failed to decode effect: %w", err)
			}
			r.Effect = effectFromJSON(ej)
		}

		requests = append(requests, r)
	}

	return requests, rows.Err()
}

// effectModel is the storage form of engine.EffectSpec.
type effectModel struct {
	Credits []statCreditModel `json:"credits,omitempty"`
}

type statCreditModel struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Unit    string `json:"unit"`
	Cap     string `json:"cap"`
}

func effectToJSON(e engine.EffectSpec) effectModel {
	var out effectModel
	for _, c := range e.Credits {
		out.Credits = append(out.Credits, statCreditModel{
			Account: c.Account.AccountID(),
			Amount:  c.Amount.Value.String(),
			Unit:    string(c.Amount.Unit),
			Cap:     c.Cap.Value.String(),
		})
	}
	return out
}

func effectFromJSON(m effectModel) engine.EffectSpec {
	var out engine.EffectSpec
	for _, c := range m.Credits {
		unit := engine.Unit(c.Unit)
		out.Credits = append(out.Credits, engine.StatCredit{
			Account: engine.GetOrCreateAccount(c.Account),
			Amount:  engine.Amount{Value: engine.MustParseDecimal(c.Amount), Unit: unit},
			Cap:     engine.Amount{Value: engine.MustParseDecimal(c.Cap), Unit: unit},
		})
	}
	return out
}

// =============================================================================
// COOLDOWN STORE
// =============================================================================

// GetCooldown returns the cooldown record for (actor, scope), or nil.
func (s *Store) GetCooldown(ctx context.Context, actorID engine.ActorID, scopeKey string) (*engine.CooldownRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getCooldown(ctx, s.db, actorID, scopeKey)
}

func getCooldown(ctx context.Context, db dbtx, actorID engine.ActorID, scopeKey string) (*engine.CooldownRecord, error) {
	var lastUsedAt string
	err := db.QueryRowContext(ctx,
		"SELECT last_used_at FROM cooldowns WHERE actor_id = ? AND scope_key = ?",
		actorID, scopeKey,
	).Scan(&lastUsedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t, _ := time.Parse(time.RFC3339Nano, lastUsedAt)
	return &engine.CooldownRecord{ActorID: actorID, ScopeKey: scopeKey, LastUsedAt: t}, nil
}

// StampCooldown records a use of a gated action, replacing any prior stamp.
func (s *Store) StampCooldown(ctx context.Context, rec engine.CooldownRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return stampCooldown(ctx, s.db, rec)
}

func stampCooldown(ctx context.Context, db dbtx, rec engine.CooldownRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO cooldowns (actor_id, scope_key, last_used_at)
		VALUES (?, ?, ?)
		ON CONFLICT(actor_id, scope_key) DO UPDATE SET
			last_used_at = excluded.last_used_at
	`,
		rec.ActorID, rec.ScopeKey, rec.LastUsedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes a function within a database transaction. The store view
// passed to fn routes every operation through the same *sql.Tx, so a failed
// approval rolls back its debits along with the status flip.
func (s *Store) WithTx(ctx context.Context, fn func(store engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Append(ctx context.Context, tx engine.Transaction) error {
	return appendTx(ctx, ts.tx, tx)
}

func (ts *txStore) AppendBatch(ctx context.Context, txs []engine.Transaction) error {
	for _, tx := range txs {
		if err := appendTx(ctx, ts.tx, tx); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) Load(ctx context.Context, actorID engine.ActorID, account engine.Account) ([]engine.Transaction, error) {
	return loadTransactions(ctx, ts.tx, actorID, account)
}

func (ts *txStore) LoadByActor(ctx context.Context, actorID engine.ActorID) ([]engine.Transaction, error) {
	return loadByActor(ctx, ts.tx, actorID)
}

func (ts *txStore) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return idempotencyKeyExists(ctx, ts.tx, idempotencyKey)
}

func (ts *txStore) SaveRequest(ctx context.Context, r engine.Request) error {
	return saveRequest(ctx, ts.tx, r)
}

func (ts *txStore) GetRequest(ctx context.Context, id engine.RequestID) (*engine.Request, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) PendingRequestFor(ctx context.Context, requesterID engine.ActorID, kind engine.RequestKind) (*engine.Request, error) {
	return pendingRequestFor(ctx, ts.tx, requesterID, kind)
}

func (ts *txStore) PendingRequests(ctx context.Context) ([]engine.Request, error) {
	return queryRequests(ctx, ts.tx, requestSelect+" WHERE status = 'pending' ORDER BY created_at ASC")
}

func (ts *txStore) RequestsByActor(ctx context.Context, requesterID engine.ActorID) ([]engine.Request, error) {
	return queryRequests(ctx, ts.tx, requestSelect+" WHERE requester_id = ? ORDER BY created_at DESC", requesterID)
}

func (ts *txStore) ResolveRequest(ctx context.Context, id engine.RequestID, to engine.RequestStatus, reviewerID string, note string, at time.Time) (bool, error) {
	return resolveRequest(ctx, ts.tx, id, to, reviewerID, note, at)
}

func (ts *txStore) GetCooldown(ctx context.Context, actorID engine.ActorID, scopeKey string) (*engine.CooldownRecord, error) {
	return getCooldown(ctx, ts.tx, actorID, scopeKey)
}

func (ts *txStore) StampCooldown(ctx context.Context, rec engine.CooldownRecord) error {
	return stampCooldown(ctx, ts.tx, rec)
}

// =============================================================================
// ACTOR STORE
// =============================================================================

// Actor is a directory record for a participant.
type Actor struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// SaveActor inserts or renames an actor.
func (s *Store) SaveActor(ctx context.Context, a Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO actors (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name
	`

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, createdAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetActor retrieves an actor by ID, or nil if absent.
func (s *Store) GetActor(ctx context.Context, id string) (*Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a Actor
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM actors WHERE id = ?",
		id,
	).Scan(&a.ID, &a.Name, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}

// ListActors returns all actors ordered by name.
func (s *Store) ListActors(ctx context.Context) ([]Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM actors ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actors []Actor
	for rows.Next() {
		var a Actor
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		actors = append(actors, a)
	}
	return actors, rows.Err()
}

// =============================================================================
// SPIN HISTORY
// =============================================================================

// SpinOutcome is a recorded roulette draw.
type SpinOutcome struct {
	ID         string
	ActorID    string
	Category   string
	PrizeID    string
	PrizeKind  string
	PrizeLabel string
	PrizeValue int64
	DrawnAt    time.Time
}

// SaveSpinOutcome records a roulette draw.
func (s *Store) SaveSpinOutcome(ctx context.Context, o SpinOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spin_outcomes (id, actor_id, category, prize_id, prize_kind, prize_label, prize_value, drawn_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID, o.ActorID, o.Category, o.PrizeID, o.PrizeKind, o.PrizeLabel, o.PrizeValue,
		o.DrawnAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// SpinOutcomesByActor returns an actor's draw history, newest first.
func (s *Store) SpinOutcomesByActor(ctx context.Context, actorID string, limit int) ([]SpinOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, category, prize_id, prize_kind, prize_label, prize_value, drawn_at
		FROM spin_outcomes
		WHERE actor_id = ?
		ORDER BY drawn_at DESC
		LIMIT ?
	`, actorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []SpinOutcome
	for rows.Next() {
		var o SpinOutcome
		var drawnAt string
		if err := rows.Scan(&o.ID, &o.ActorID, &o.Category, &o.PrizeID, &o.PrizeKind, &o.PrizeLabel, &o.PrizeValue, &drawnAt); err != nil {
			return nil, err
		}
		o.DrawnAt, _ = time.Parse(time.RFC3339Nano, drawnAt)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"transactions", "requests", "cooldowns", "spin_outcomes", "actors"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
