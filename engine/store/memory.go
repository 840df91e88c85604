// Package store provides Store implementations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/yunhopapisaoko-dot/township/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[key][]engine.Transaction
	idempotency  map[string]bool
	requests     map[engine.RequestID]engine.Request
	requestOrder []engine.RequestID
	cooldowns    map[cooldownKey]engine.CooldownRecord
}

type key struct {
	ActorID engine.ActorID
	Account string
}

type cooldownKey struct {
	ActorID  engine.ActorID
	ScopeKey string
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[key][]engine.Transaction),
		idempotency:  make(map[string]bool),
		requests:     make(map[engine.RequestID]engine.Request),
		cooldowns:    make(map[cooldownKey]engine.CooldownRecord),
	}
}

// Append adds a single transaction. Append-only.
func (m *Memory) Append(_ context.Context, tx engine.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(tx)
}

// AppendBatch adds multiple transactions atomically.
func (m *Memory) AppendBatch(_ context.Context, txs []engine.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all idempotency keys first (atomic check)
	for _, tx := range txs {
		if tx.IdempotencyKey != "" && m.idempotency[tx.IdempotencyKey] {
			return engine.ErrDuplicateIdempotencyKey
		}
	}

	for _, tx := range txs {
		if err := m.appendLocked(tx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) appendLocked(tx engine.Transaction) error {
	if tx.IdempotencyKey != "" {
		if m.idempotency[tx.IdempotencyKey] {
			return engine.ErrDuplicateIdempotencyKey
		}
		m.idempotency[tx.IdempotencyKey] = true
	}

	k := key{ActorID: tx.ActorID, Account: tx.Account.AccountID()}
	m.transactions[k] = append(m.transactions[k], tx)
	return nil
}

func (m *Memory) Load(_ context.Context, actorID engine.ActorID, account engine.Account) ([]engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadLocked(actorID, account), nil
}

func (m *Memory) loadLocked(actorID engine.ActorID, account engine.Account) []engine.Transaction {
	k := key{ActorID: actorID, Account: account.AccountID()}
	result := make([]engine.Transaction, len(m.transactions[k]))
	copy(result, m.transactions[k])
	return result
}

func (m *Memory) LoadByActor(_ context.Context, actorID engine.ActorID) ([]engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Transaction
	for k, txs := range m.transactions {
		if k.ActorID == actorID {
			result = append(result, txs...)
		}
	}
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) SaveRequest(_ context.Context, r engine.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveRequestLocked(r)
}

func (m *Memory) saveRequestLocked(r engine.Request) error {
	if _, exists := m.requests[r.ID]; !exists {
		m.requestOrder = append(m.requestOrder, r.ID)
	}
	m.requests[r.ID] = r
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id engine.RequestID) (*engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRequestLocked(id), nil
}

func (m *Memory) getRequestLocked(id engine.RequestID) *engine.Request {
	r, ok := m.requests[id]
	if !ok {
		return nil
	}
	return &r
}

func (m *Memory) PendingRequestFor(_ context.Context, requesterID engine.ActorID, kind engine.RequestKind) (*engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingRequestForLocked(requesterID, kind), nil
}

func (m *Memory) pendingRequestForLocked(requesterID engine.ActorID, kind engine.RequestKind) *engine.Request {
	for _, id := range m.requestOrder {
		r := m.requests[id]
		if r.RequesterID == requesterID && r.Kind == kind && r.Status == engine.RequestPending {
			return &r
		}
	}
	return nil
}

func (m *Memory) PendingRequests(_ context.Context) ([]engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Request
	for _, id := range m.requestOrder {
		if r := m.requests[id]; r.Status == engine.RequestPending {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *Memory) RequestsByActor(_ context.Context, requesterID engine.ActorID) ([]engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Request
	for i := len(m.requestOrder) - 1; i >= 0; i-- {
		if r := m.requests[m.requestOrder[i]]; r.RequesterID == requesterID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *Memory) ResolveRequest(_ context.Context, id engine.RequestID, to engine.RequestStatus, reviewerID string, note string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveRequestLocked(id, to, reviewerID, note, at), nil
}

func (m *Memory) resolveRequestLocked(id engine.RequestID, to engine.RequestStatus, reviewerID string, note string, at time.Time) bool {
	r, ok := m.requests[id]
	if !ok || r.Status != engine.RequestPending {
		return false
	}
	r.Status = to
	r.ReviewerID = reviewerID
	r.ResolutionNote = note
	r.ResolvedAt = &at
	r.UpdatedAt = at
	m.requests[id] = r
	return true
}

// =============================================================================
// COOLDOWNS
// =============================================================================

func (m *Memory) GetCooldown(_ context.Context, actorID engine.ActorID, scopeKey string) (*engine.CooldownRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.cooldowns[cooldownKey{ActorID: actorID, ScopeKey: scopeKey}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) StampCooldown(_ context.Context, rec engine.CooldownRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldowns[cooldownKey{ActorID: rec.ActorID, ScopeKey: rec.ScopeKey}] = rec
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error;
// the lock held for the duration serializes conflicting writers.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	txStore := &txMemoryView{parent: tm}

	if err := fn(txStore); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	txsCopy := make(map[key][]engine.Transaction)
	for k, v := range tm.transactions {
		txsCopy[k] = append([]engine.Transaction{}, v...)
	}
	idempCopy := make(map[string]bool)
	for k, v := range tm.idempotency {
		idempCopy[k] = v
	}
	reqCopy := make(map[engine.RequestID]engine.Request)
	for k, v := range tm.requests {
		reqCopy[k] = v
	}
	orderCopy := append([]engine.RequestID{}, tm.requestOrder...)
	cdCopy := make(map[cooldownKey]engine.CooldownRecord)
	for k, v := range tm.cooldowns {
		cdCopy[k] = v
	}
	return memorySnapshot{
		transactions: txsCopy,
		idempotency:  idempCopy,
		requests:     reqCopy,
		requestOrder: orderCopy,
		cooldowns:    cdCopy,
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.transactions = s.transactions
	tm.idempotency = s.idempotency
	tm.requests = s.requests
	tm.requestOrder = s.requestOrder
	tm.cooldowns = s.cooldowns
}

type memorySnapshot struct {
	transactions map[key][]engine.Transaction
	idempotency  map[string]bool
	requests     map[engine.RequestID]engine.Request
	requestOrder []engine.RequestID
	cooldowns    map[cooldownKey]engine.CooldownRecord
}

// txMemoryView routes Store calls to the parent without re-locking; the
// parent's mutex is already held by WithTx.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) Append(_ context.Context, tx engine.Transaction) error {
	return tv.parent.appendLocked(tx)
}

func (tv *txMemoryView) AppendBatch(_ context.Context, txs []engine.Transaction) error {
	for _, tx := range txs {
		if err := tv.parent.appendLocked(tx); err != nil {
			return err
		}
	}
	return nil
}

func (tv *txMemoryView) Load(_ context.Context, actorID engine.ActorID, account engine.Account) ([]engine.Transaction, error) {
	return tv.parent.loadLocked(actorID, account), nil
}

func (tv *txMemoryView) LoadByActor(_ context.Context, actorID engine.ActorID) ([]engine.Transaction, error) {
	var result []engine.Transaction
	for k, txs := range tv.parent.transactions {
		if k.ActorID == actorID {
			result = append(result, txs...)
		}
	}
	return result, nil
}

func (tv *txMemoryView) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	return tv.parent.idempotency[idempotencyKey], nil
}

func (tv *txMemoryView) SaveRequest(_ context.Context, r engine.Request) error {
	return tv.parent.saveRequestLocked(r)
}

func (tv *txMemoryView) GetRequest(_ context.Context, id engine.RequestID) (*engine.Request, error) {
	return tv.parent.getRequestLocked(id), nil
}

func (tv *txMemoryView) PendingRequestFor(_ context.Context, requesterID engine.ActorID, kind engine.RequestKind) (*engine.Request, error) {
	return tv.parent.pendingRequestForLocked(requesterID, kind), nil
}

func (tv *txMemoryView) PendingRequests(ctx context.Context) ([]engine.Request, error) {
	var result []engine.Request
	for _, id := range tv.parent.requestOrder {
		if r := tv.parent.requests[id]; r.Status == engine.RequestPending {
			result = append(result, r)
		}
	}
	return result, nil
}

func (tv *txMemoryView) RequestsByActor(_ context.Context, requesterID engine.ActorID) ([]engine.Request, error) {
	var result []engine.Request
	for i := len(tv.parent.requestOrder) - 1; i >= 0; i-- {
		if r := tv.parent.requests[tv.parent.requestOrder[i]]; r.RequesterID == requesterID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (tv *txMemoryView) ResolveRequest(_ context.Context, id engine.RequestID, to engine.RequestStatus, reviewerID string, note string, at time.Time) (bool, error) {
	return tv.parent.resolveRequestLocked(id, to, reviewerID, note, at), nil
}

func (tv *txMemoryView) GetCooldown(_ context.Context, actorID engine.ActorID, scopeKey string) (*engine.CooldownRecord, error) {
	rec, ok := tv.parent.cooldowns[cooldownKey{ActorID: actorID, ScopeKey: scopeKey}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (tv *txMemoryView) StampCooldown(_ context.Context, rec engine.CooldownRecord) error {
	tv.parent.cooldowns[cooldownKey{ActorID: rec.ActorID, ScopeKey: rec.ScopeKey}] = rec
	return nil
}
