package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
)

func seed(t *testing.T, s *Store, identity string, balance string) (*domain.Client, *domain.Account) {
	t.Helper()
	c := &domain.Client{IdentityID: identity, Name: identity, CPF: "cpf-" + identity}
	a := &domain.Account{Number: "n-" + identity, Branch: "0001", Kind: domain.AccountChecking, Active: true}
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertClient(ctx, c); err != nil {
			return err
		}
		a.ClientID = c.ID
		if err := tx.InsertAccount(ctx, a); err != nil {
			return err
		}
		_, err := tx.AdjustBalance(ctx, a.ID, decimal.RequireFromString(balance))
		return err
	})
	require.NoError(t, err)
	return c, a
}

func TestWithTxRollsBackEveryChange(t *testing.T) {
	ctx := context.Background()
	s := New()
	c, a := seed(t, s, "u-1", "100")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.AdjustBalance(ctx, a.ID, decimal.NewFromInt(-40)); err != nil {
			return err
		}
		tr := &domain.Transaction{OriginAccountID: a.ID, Kind: domain.KindWithdrawal, Amount: decimal.NewFromInt(40), Status: domain.StatusPending}
		if err := tx.InsertTransaction(ctx, tr); err != nil {
			return err
		}
		if err := tx.InsertLoan(ctx, &domain.Loan{ClientID: c.ID, Status: domain.LoanRequested}); err != nil {
			return err
		}
		if err := tx.SetAccountActive(ctx, a.ID, false); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, access.Unrestricted, a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Balance))
	assert.True(t, got.Active)

	txs, err := s.ListTransactions(ctx, access.Unrestricted)
	require.NoError(t, err)
	assert.Empty(t, txs)

	loans, err := s.ListLoans(ctx, access.Unrestricted)
	require.NoError(t, err)
	assert.Empty(t, loans)

	// sequence is reused after rollback
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		l := &domain.Loan{ClientID: c.ID, Status: domain.LoanRequested}
		if err := tx.InsertLoan(ctx, l); err != nil {
			return err
		}
		assert.Equal(t, int64(1), l.ID)
		return nil
	}))
}

func TestAdjustBalanceNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, a := seed(t, s, "u-1", "10")

	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.AdjustBalance(ctx, a.ID, decimal.NewFromInt(-11))
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))
}

func TestScopedReads(t *testing.T) {
	ctx := context.Background()
	s := New()
	c1, a1 := seed(t, s, "u-1", "10")
	_, a2 := seed(t, s, "u-2", "10")

	owner := access.For(domain.Identity{ID: "u-1"})

	_, err := s.GetAccount(ctx, owner, a2.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	accounts, err := s.ListAccounts(ctx, owner)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, a1.ID, accounts[0].ID)

	clients, err := s.ListClients(ctx, owner)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, c1.ID, clients[0].ID)

	all, err := s.ListAccounts(ctx, access.Unrestricted)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	var nobody access.Scope
	none, err := s.ListAccounts(ctx, nobody)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStatementBoundsAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, a1 := seed(t, s, "u-1", "100")
	_, a2 := seed(t, s, "u-2", "100")

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	dest := a1.ID
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rows := []*domain.Transaction{
			{OriginAccountID: a1.ID, Kind: domain.KindDeposit, Amount: decimal.NewFromInt(1), Status: domain.StatusSettled, OccurredAt: day.Add(-time.Hour)},
			{OriginAccountID: a1.ID, Kind: domain.KindDeposit, Amount: decimal.NewFromInt(2), Status: domain.StatusSettled, OccurredAt: day.Add(time.Hour)},
			{OriginAccountID: a2.ID, DestinationAccountID: &dest, Kind: domain.KindTransfer, Amount: decimal.NewFromInt(3), Status: domain.StatusSettled, OccurredAt: day.Add(2 * time.Hour)},
			{OriginAccountID: a1.ID, Kind: domain.KindDeposit, Amount: decimal.NewFromInt(4), Status: domain.StatusPending, OccurredAt: day.Add(3 * time.Hour)},
			{OriginAccountID: a2.ID, Kind: domain.KindDeposit, Amount: decimal.NewFromInt(5), Status: domain.StatusSettled, OccurredAt: day.Add(4 * time.Hour)},
		}
		for _, r := range rows {
			if err := tx.InsertTransaction(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	from, to := day, day.Add(24*time.Hour)
	got, err := s.ListStatement(ctx, access.Unrestricted, a1.ID, &from, &to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].Amount.String())
	assert.Equal(t, "2", got[1].Amount.String())

	everything, err := s.ListStatement(ctx, access.Unrestricted, a1.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, everything, 3)

	// transfers are listed under the origin owner only
	mine, err := s.ListTransactions(ctx, access.For(domain.Identity{ID: "u-1"}))
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestIdempotencyReservation(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rec, err := tx.GetIdempotency(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, rec)
		require.NoError(t, tx.ReserveIdempotency(ctx, "k", "h"))
		err = tx.ReserveIdempotency(ctx, "k", "h")
		assert.True(t, errors.Is(err, domain.ErrIdempotencyConflict))
		return nil
	}))

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rec, err := tx.GetIdempotency(ctx, "k")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, domain.IdempotencyInProgress, rec.Status)
		return nil
	}))
}

func TestFirstActiveAccountLowestID(t *testing.T) {
	ctx := context.Background()
	s := New()
	c, first := seed(t, s, "u-1", "0")

	var second *domain.Account
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		second = &domain.Account{ClientID: c.ID, Number: "n-2", Kind: domain.AccountSavings, Active: true}
		if err := tx.InsertAccount(ctx, second); err != nil {
			return err
		}
		got, err := tx.FirstActiveAccount(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		require.NoError(t, tx.SetAccountActive(ctx, first.ID, false))
		got, err = tx.FirstActiveAccount(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)

		require.NoError(t, tx.SetAccountActive(ctx, second.ID, false))
		_, err = tx.FirstActiveAccount(ctx, c.ID)
		assert.True(t, errors.Is(err, domain.ErrNoActiveAccount))
		return nil
	}))
}
