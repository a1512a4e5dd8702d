package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
	"github.com/punchamoorthee/backoffice/internal/store/memory"
)

var staff = domain.Identity{ID: "staff-1", Privileged: true}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	store       store.Store
	clock       *testClock
	clients     *ClientService
	accounts    *AccountService
	ledger      *LedgerEngine
	loans       *LoanEngine
	investments *InvestmentEngine
	seq         int
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 10, 13, 0, 0, 0, time.UTC)}
	return build(memory.New(), clock)
}

func build(st store.Store, clock *testClock) *fixture {
	log := quietLogger()
	opt := WithClock(clock.Now)

	f := &fixture{store: st, clock: clock}
	f.clients = NewClientService(st, log, opt)
	f.accounts = NewAccountService(st, log, opt)
	f.ledger = NewLedgerEngine(st, log, opt)
	f.loans = NewLoanEngine(st, f.ledger, log, opt)
	f.investments = NewInvestmentEngine(st, f.ledger, log, opt)
	return f
}

// withStore rebuilds the services on top of st, sharing the clock.
func (f *fixture) withStore(st store.Store) *fixture {
	return build(st, f.clock)
}

func (f *fixture) client(t *testing.T, identityID string) *domain.Client {
	t.Helper()
	f.seq++
	c, err := f.clients.Create(context.Background(), staff, CreateClientRequest{
		IdentityID: identityID,
		Name:       "Cliente " + identityID,
		CPF:        fmt.Sprintf("%011d", f.seq),
		BirthDate:  time.Date(1990, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return c
}

// account opens an account and funds it with a settled deposit.
func (f *fixture) account(t *testing.T, c *domain.Client, number, balance string) *domain.Account {
	t.Helper()
	ctx := context.Background()
	acc, err := f.accounts.Open(ctx, staff, OpenAccountRequest{
		ClientID: c.ID,
		Number:   number,
		Branch:   "0001",
		Kind:     domain.AccountChecking,
	})
	require.NoError(t, err)

	amount := decimal.RequireFromString(balance)
	if amount.IsPositive() {
		_, err = f.ledger.Move(ctx, staff, MoveRequest{
			OriginAccountID: acc.ID,
			Kind:            domain.KindDeposit,
			Amount:          amount,
		})
		require.NoError(t, err)
	}
	return acc
}

func (f *fixture) balance(t *testing.T, accountID int64) decimal.Decimal {
	t.Helper()
	acc, err := f.store.GetAccount(context.Background(), access.Unrestricted, accountID)
	require.NoError(t, err)
	return acc.Balance
}

func (f *fixture) transactions(t *testing.T) []domain.Transaction {
	t.Helper()
	txs, err := f.store.ListTransactions(context.Background(), access.Unrestricted)
	require.NoError(t, err)
	return txs
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

// faultyStore hands fn a decorated unit of work.
type faultyStore struct {
	store.Store
	wrap func(store.Tx) store.Tx
}

func (s faultyStore) WithTx(ctx context.Context, fn store.TxFunc) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, s.wrap(tx))
	})
}
