// Package memory is an in-process store used by tests and local runs.
//
// A unit of work holds the store-wide write lock for its whole duration, so
// units are serialized. Every mutation records an undo step; a failed unit
// replays them in reverse before releasing the lock.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
)

type Store struct {
	mu sync.RWMutex
	st *state
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithTx(ctx context.Context, fn store.TxFunc) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{state: s.st}
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
		if err != nil {
			t.rollback()
		}
	}()
	return fn(ctx, t)
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

func (s *Store) GetClient(ctx context.Context, scope access.Scope, id int64) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetClient(ctx, scope, id)
}

func (s *Store) ListClients(ctx context.Context, scope access.Scope) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListClients(ctx, scope)
}

func (s *Store) GetAccount(ctx context.Context, scope access.Scope, id int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetAccount(ctx, scope, id)
}

func (s *Store) ListAccounts(ctx context.Context, scope access.Scope) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListAccounts(ctx, scope)
}

func (s *Store) GetTransaction(ctx context.Context, scope access.Scope, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetTransaction(ctx, scope, id)
}

func (s *Store) ListTransactions(ctx context.Context, scope access.Scope) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListTransactions(ctx, scope)
}

func (s *Store) ListStatement(ctx context.Context, scope access.Scope, accountID int64, from, to *time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListStatement(ctx, scope, accountID, from, to)
}

func (s *Store) GetLoan(ctx context.Context, scope access.Scope, id int64) (*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetLoan(ctx, scope, id)
}

func (s *Store) ListLoans(ctx context.Context, scope access.Scope) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListLoans(ctx, scope)
}

func (s *Store) GetInvestment(ctx context.Context, scope access.Scope, id int64) (*domain.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetInvestment(ctx, scope, id)
}

func (s *Store) ListInvestments(ctx context.Context, scope access.Scope) ([]domain.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListInvestments(ctx, scope)
}

// state holds the records. Callers synchronize through Store.mu.
type state struct {
	clients      map[int64]*domain.Client
	accounts     map[int64]*domain.Account
	transactions map[uuid.UUID]*domain.Transaction
	txOrder      []uuid.UUID
	loans        map[int64]*domain.Loan
	investments  map[int64]*domain.Investment
	idempotency  map[string]*domain.IdempotencyRecord

	clientSeq, accountSeq, loanSeq, investmentSeq int64
}

func newState() *state {
	return &state{
		clients:      make(map[int64]*domain.Client),
		accounts:     make(map[int64]*domain.Account),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		loans:        make(map[int64]*domain.Loan),
		investments:  make(map[int64]*domain.Investment),
		idempotency:  make(map[string]*domain.IdempotencyRecord),
	}
}

func (st *state) permitsClient(scope access.Scope, clientID int64) bool {
	if scope.All() {
		_, ok := st.clients[clientID]
		return ok
	}
	c, ok := st.clients[clientID]
	return ok && scope.Permits(c.IdentityID)
}

func (st *state) permitsAccount(scope access.Scope, accountID int64) bool {
	a, ok := st.accounts[accountID]
	return ok && st.permitsClient(scope, a.ClientID)
}

func (st *state) GetClient(_ context.Context, scope access.Scope, id int64) (*domain.Client, error) {
	if !st.permitsClient(scope, id) {
		return nil, domain.NotFound(store.EntityClient)
	}
	c := *st.clients[id]
	return &c, nil
}

func (st *state) ListClients(_ context.Context, scope access.Scope) ([]domain.Client, error) {
	out := []domain.Client{}
	for id, c := range st.clients {
		if st.permitsClient(scope, id) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) GetAccount(_ context.Context, scope access.Scope, id int64) (*domain.Account, error) {
	if !st.permitsAccount(scope, id) {
		return nil, domain.NotFound(store.EntityAccount)
	}
	a := *st.accounts[id]
	return &a, nil
}

func (st *state) ListAccounts(_ context.Context, scope access.Scope) ([]domain.Account, error) {
	out := []domain.Account{}
	for id, a := range st.accounts {
		if st.permitsAccount(scope, id) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (st *state) GetTransaction(_ context.Context, scope access.Scope, id uuid.UUID) (*domain.Transaction, error) {
	t, ok := st.transactions[id]
	if !ok || !st.permitsAccount(scope, t.OriginAccountID) {
		return nil, domain.NotFound(store.EntityTransaction)
	}
	cp := *t
	return &cp, nil
}

// newestFirst walks transactions from the latest insert and orders them by
// occurrence, keeping insertion order for equal timestamps.
func (st *state) newestFirst(keep func(*domain.Transaction) bool) []domain.Transaction {
	out := []domain.Transaction{}
	for i := len(st.txOrder) - 1; i >= 0; i-- {
		t := st.transactions[st.txOrder[i]]
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out
}

func (st *state) ListTransactions(_ context.Context, scope access.Scope) ([]domain.Transaction, error) {
	return st.newestFirst(func(t *domain.Transaction) bool {
		return st.permitsAccount(scope, t.OriginAccountID)
	}), nil
}

func (st *state) ListStatement(_ context.Context, scope access.Scope, accountID int64, from, to *time.Time) ([]domain.Transaction, error) {
	if !st.permitsAccount(scope, accountID) {
		return nil, domain.NotFound(store.EntityAccount)
	}
	return st.newestFirst(func(t *domain.Transaction) bool {
		if t.Status != domain.StatusSettled {
			return false
		}
		touches := t.OriginAccountID == accountID ||
			(t.DestinationAccountID != nil && *t.DestinationAccountID == accountID)
		if !touches {
			return false
		}
		if from != nil && t.OccurredAt.Before(*from) {
			return false
		}
		if to != nil && !t.OccurredAt.Before(*to) {
			return false
		}
		return true
	}), nil
}

func (st *state) GetLoan(_ context.Context, scope access.Scope, id int64) (*domain.Loan, error) {
	l, ok := st.loans[id]
	if !ok || !st.permitsClient(scope, l.ClientID) {
		return nil, domain.NotFound(store.EntityLoan)
	}
	cp := *l
	return &cp, nil
}

func (st *state) ListLoans(_ context.Context, scope access.Scope) ([]domain.Loan, error) {
	out := []domain.Loan{}
	for _, l := range st.loans {
		if st.permitsClient(scope, l.ClientID) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (st *state) GetInvestment(_ context.Context, scope access.Scope, id int64) (*domain.Investment, error) {
	inv, ok := st.investments[id]
	if !ok || !st.permitsClient(scope, inv.ClientID) {
		return nil, domain.NotFound(store.EntityInvestment)
	}
	cp := *inv
	return &cp, nil
}

func (st *state) ListInvestments(_ context.Context, scope access.Scope) ([]domain.Investment, error) {
	out := []domain.Investment{}
	for _, inv := range st.investments {
		if st.permitsClient(scope, inv.ClientID) {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// tx mutates state directly and remembers how to undo each change.
type tx struct {
	*state
	undo []func()
}

func (t *tx) record(fn func()) { t.undo = append(t.undo, fn) }

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) LockAccounts(_ context.Context, ids ...int64) (map[int64]*domain.Account, error) {
	out := make(map[int64]*domain.Account, len(ids))
	for _, id := range ids {
		a, ok := t.accounts[id]
		if !ok {
			return nil, domain.NotFound(store.EntityAccount)
		}
		cp := *a
		out[id] = &cp
	}
	return out, nil
}

func (t *tx) FirstActiveAccount(_ context.Context, clientID int64) (*domain.Account, error) {
	var first *domain.Account
	for _, a := range t.accounts {
		if a.ClientID != clientID || !a.Active {
			continue
		}
		if first == nil || a.ID < first.ID {
			first = a
		}
	}
	if first == nil {
		return nil, domain.NoActiveAccount()
	}
	cp := *first
	return &cp, nil
}

func (t *tx) AdjustBalance(_ context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	a, ok := t.accounts[accountID]
	if !ok {
		return decimal.Zero, domain.NotFound(store.EntityAccount)
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, domain.InsufficientFunds()
	}
	prev, prevUpdated := a.Balance, a.UpdatedAt
	a.Balance, a.UpdatedAt = next, time.Now().UTC()
	t.record(func() { a.Balance, a.UpdatedAt = prev, prevUpdated })
	return next, nil
}

func (t *tx) InsertAccount(_ context.Context, a *domain.Account) error {
	if _, ok := t.clients[a.ClientID]; !ok {
		return domain.NotFound(store.EntityClient)
	}
	for _, existing := range t.accounts {
		if existing.Number == a.Number {
			return domain.Validation("numero_conta", "Já existe uma conta com este número.")
		}
	}
	t.accountSeq++
	now := time.Now().UTC()
	a.ID, a.CreatedAt, a.UpdatedAt = t.accountSeq, now, now
	cp := *a
	t.accounts[a.ID] = &cp
	id := a.ID
	t.record(func() {
		delete(t.accounts, id)
		t.accountSeq--
	})
	return nil
}

func (t *tx) SetAccountActive(_ context.Context, accountID int64, active bool) error {
	a, ok := t.accounts[accountID]
	if !ok {
		return domain.NotFound(store.EntityAccount)
	}
	prev, prevUpdated := a.Active, a.UpdatedAt
	a.Active, a.UpdatedAt = active, time.Now().UTC()
	t.record(func() { a.Active, a.UpdatedAt = prev, prevUpdated })
	return nil
}

func (t *tx) InsertClient(_ context.Context, c *domain.Client) error {
	for _, existing := range t.clients {
		if existing.CPF == c.CPF {
			return domain.Validation("cpf", "Já existe um cliente com este CPF.")
		}
		if existing.IdentityID == c.IdentityID {
			return domain.Validation("identity_id", "Esta identidade já possui um cliente.")
		}
	}
	t.clientSeq++
	now := time.Now().UTC()
	c.ID, c.CreatedAt, c.UpdatedAt = t.clientSeq, now, now
	cp := *c
	t.clients[c.ID] = &cp
	id := c.ID
	t.record(func() {
		delete(t.clients, id)
		t.clientSeq--
	})
	return nil
}

func (t *tx) UpdateClientContact(_ context.Context, clientID int64, phone, address string) error {
	c, ok := t.clients[clientID]
	if !ok {
		return domain.NotFound(store.EntityClient)
	}
	prev := *c
	c.Phone, c.Address, c.UpdatedAt = phone, address, time.Now().UTC()
	t.record(func() { *c = prev })
	return nil
}

func (t *tx) InsertTransaction(_ context.Context, tr *domain.Transaction) error {
	if _, ok := t.accounts[tr.OriginAccountID]; !ok {
		return domain.NotFound(store.EntityAccount)
	}
	if tr.DestinationAccountID != nil {
		if _, ok := t.accounts[*tr.DestinationAccountID]; !ok {
			return domain.NotFound(store.EntityAccount)
		}
	}
	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	now := time.Now().UTC()
	tr.CreatedAt, tr.UpdatedAt = now, now
	cp := *tr
	t.transactions[tr.ID] = &cp
	t.txOrder = append(t.txOrder, tr.ID)
	id := tr.ID
	t.record(func() {
		delete(t.transactions, id)
		t.txOrder = t.txOrder[:len(t.txOrder)-1]
	})
	return nil
}

func (t *tx) UpdateTransactionStatus(_ context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	tr, ok := t.transactions[id]
	if !ok {
		return domain.NotFound(store.EntityTransaction)
	}
	prev, prevUpdated := tr.Status, tr.UpdatedAt
	tr.Status, tr.UpdatedAt = status, time.Now().UTC()
	t.record(func() { tr.Status, tr.UpdatedAt = prev, prevUpdated })
	return nil
}

func (t *tx) InsertLoan(_ context.Context, l *domain.Loan) error {
	if _, ok := t.clients[l.ClientID]; !ok {
		return domain.NotFound(store.EntityClient)
	}
	t.loanSeq++
	now := time.Now().UTC()
	l.ID, l.CreatedAt, l.UpdatedAt = t.loanSeq, now, now
	cp := *l
	t.loans[l.ID] = &cp
	id := l.ID
	t.record(func() {
		delete(t.loans, id)
		t.loanSeq--
	})
	return nil
}

func (t *tx) LockLoan(_ context.Context, id int64) (*domain.Loan, error) {
	l, ok := t.loans[id]
	if !ok {
		return nil, domain.NotFound(store.EntityLoan)
	}
	cp := *l
	return &cp, nil
}

func (t *tx) UpdateLoan(_ context.Context, l *domain.Loan) error {
	existing, ok := t.loans[l.ID]
	if !ok {
		return domain.NotFound(store.EntityLoan)
	}
	prev := *existing
	l.UpdatedAt = time.Now().UTC()
	*existing = *l
	t.record(func() { *existing = prev })
	return nil
}

func (t *tx) MarkLoansOverdue(_ context.Context, today time.Time) (int64, error) {
	var n int64
	for _, l := range t.loans {
		if l.Status != domain.LoanApproved || l.DueOn == nil || !l.DueOn.Before(today) {
			continue
		}
		loan := l
		prev, prevUpdated := loan.Status, loan.UpdatedAt
		loan.Status, loan.UpdatedAt = domain.LoanOverdue, time.Now().UTC()
		t.record(func() { loan.Status, loan.UpdatedAt = prev, prevUpdated })
		n++
	}
	return n, nil
}

func (t *tx) InsertInvestment(_ context.Context, inv *domain.Investment) error {
	if _, ok := t.clients[inv.ClientID]; !ok {
		return domain.NotFound(store.EntityClient)
	}
	t.investmentSeq++
	now := time.Now().UTC()
	inv.ID, inv.CreatedAt, inv.UpdatedAt = t.investmentSeq, now, now
	cp := *inv
	t.investments[inv.ID] = &cp
	id := inv.ID
	t.record(func() {
		delete(t.investments, id)
		t.investmentSeq--
	})
	return nil
}

func (t *tx) GetIdempotency(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	rec, ok := t.idempotency[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (t *tx) ReserveIdempotency(_ context.Context, key, requestHash string) error {
	if _, ok := t.idempotency[key]; ok {
		return domain.IdempotencyConflict()
	}
	t.idempotency[key] = &domain.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      domain.IdempotencyInProgress,
	}
	t.record(func() { delete(t.idempotency, key) })
	return nil
}

func (t *tx) CompleteIdempotency(_ context.Context, key string, transactionID uuid.UUID) error {
	rec, ok := t.idempotency[key]
	if !ok {
		return domain.NotFound("Chave de idempotência")
	}
	prev := *rec
	rec.Status, rec.TransactionID = domain.IdempotencyCompleted, transactionID
	t.record(func() { *rec = prev })
	return nil
}
