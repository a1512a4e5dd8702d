package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
)

func TestLoanRequest(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "u-1")
	ctx := context.Background()

	loan, err := f.loans.Request(ctx, domain.Identity{ID: "u-1"}, LoanRequest{ClientID: c.ID, Amount: dec("5000.00"), TermMonths: 12})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanRequested, loan.Status)
	assert.True(t, dec("1.50").Equal(loan.InterestRate))
	assert.False(t, loan.ApprovedAmount.Valid)
	assert.Nil(t, loan.ApprovedOn)
	assert.Nil(t, loan.DueOn)

	_, err = f.loans.Request(ctx, domain.Identity{ID: "u-2"}, LoanRequest{ClientID: c.ID, Amount: dec("10"), TermMonths: 1})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.loans.Request(ctx, staff, LoanRequest{ClientID: c.ID, Amount: dec("10"), TermMonths: 0})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.loans.Request(ctx, staff, LoanRequest{ClientID: 99, Amount: dec("10"), TermMonths: 1})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLoanApprovalCreditsFirstActiveAccount(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "u-1")
	closed := f.account(t, c, "1001", "0")
	target := f.account(t, c, "1002", "10.00")
	later := f.account(t, c, "1003", "0")
	ctx := context.Background()
	_, err := f.accounts.Close(ctx, staff, closed.ID)
	require.NoError(t, err)

	loan, err := f.loans.Request(ctx, domain.Identity{ID: "u-1"}, LoanRequest{ClientID: c.ID, Amount: dec("5000.00"), TermMonths: 12})
	require.NoError(t, err)

	approved, err := f.loans.Approve(ctx, staff, loan.ID, nil)
	require.NoError(t, err)

	today := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, domain.LoanApproved, approved.Status)
	require.True(t, approved.ApprovedAmount.Valid)
	assert.True(t, dec("5000").Equal(approved.ApprovedAmount.Decimal))
	require.NotNil(t, approved.ApprovedOn)
	require.NotNil(t, approved.DueOn)
	assert.True(t, today.Equal(*approved.ApprovedOn))
	assert.True(t, today.AddDate(0, 0, 360).Equal(*approved.DueOn))
	assert.True(t, dec("458.40").Equal(approved.MonthlyInstallment.Decimal))

	assert.True(t, dec("5010").Equal(f.balance(t, target.ID)))
	assert.True(t, dec("0").Equal(f.balance(t, later.ID)))

	var disbursement *domain.Transaction
	for _, tr := range f.transactions(t) {
		if tr.Description == "Empréstimo aprovado - ID: 1" {
			disbursement = &tr
			break
		}
	}
	require.NotNil(t, disbursement)
	assert.Equal(t, domain.KindDeposit, disbursement.Kind)
	assert.Equal(t, domain.StatusSettled, disbursement.Status)
	assert.Equal(t, target.ID, disbursement.OriginAccountID)
	assert.True(t, dec("5000").Equal(disbursement.Amount))

	stored, err := f.loans.Get(ctx, domain.Identity{ID: "u-1"}, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanApproved, stored.Status)
}

func TestLoanApprovalWithCustomAmount(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "u-1")
	acc := f.account(t, c, "1001", "0")
	ctx := context.Background()

	loan, err := f.loans.Request(ctx, staff, LoanRequest{ClientID: c.ID, Amount: dec("5000"), TermMonths: 6})
	require.NoError(t, err)

	approved, err := f.loans.Approve(ctx, staff, loan.ID, ptr(dec("3000.00")))
	require.NoError(t, err)
	assert.True(t, dec("3000").Equal(approved.ApprovedAmount.Decimal))
	assert.True(t, dec("5000").Equal(approved.RequestedAmount))
	assert.True(t, dec("3000").Equal(f.balance(t, acc.ID)))
}

func TestLoanApprovalRules(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "u-1")
	f.account(t, c, "1001", "0")
	ctx := context.Background()

	loan, err := f.loans.Request(ctx, staff, LoanRequest{ClientID: c.ID, Amount: dec("100"), TermMonths: 2})
	require.NoError(t, err)

	_, err = f.loans.Approve(ctx, domain.Identity{ID: "u-1"}, loan.ID, nil)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.loans.Approve(ctx, staff, loan.ID+100, nil)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.loans.Approve(ctx, staff, loan.ID, nil)
	require.NoError(t, err)

	_, err = f.loans.Approve(ctx, staff, loan.ID, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	_, err = f.loans.Deny(ctx, staff, loan.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestLoanDeny(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "u-1")
	ctx := context.Background()

	loan, err := f.loans.Request(ctx, staff, LoanRequest{ClientID: c.ID, Amount: dec("100"), TermMonths: 2})
	require.NoError(t, err)

	_, err = f.loans.Deny(ctx, domain.Identity{ID: "u-1"}, loan.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	denied, err := f.loans.Deny(ctx, staff, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanDenied, denied.Status)
	assert.False(t, denied.ApprovedAmount.Valid)

	_, err = f.loans.Approve(ctx, staff, loan.ID, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func assertLoanUntouched(t *testing.T, f *fixture, id int64) {
	t.Helper()
	loan, err := f.store.GetLoan(context.Background(), access.Unrestricted, id)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanRequested, loan.Status)
	assert.False(t, loan.ApprovedAmount.Valid)
	assert.False(t, loan.MonthlyInstallment.Valid)
	assert.Nil(t, loan.ApprovedOn)
	assert.Nil(t, loan.DueOn)
}

func TestLoanApprovalRevertsWhenCreditFails(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "u-1")
	acc := f.account(t, c, "1001", "25.00")
	ctx := context.Background()
	before := len(f.transactions(t))

	loan, err := f.loans.Request(ctx, staff, LoanRequest{ClientID: c.ID, Amount: dec("5000"), TermMonths: 12})
	require.NoError(t, err)

	faulty := f.withStore(faultyStore{Store: f.store, wrap: func(tx store.Tx) store.Tx { return creditFailingTx{tx} }})
	_, err = faulty.loans.Approve(ctx, staff, loan.ID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOperationFailed))
	assert.ErrorIs(t, err, errConnectionReset)
	assert.Equal(t, "Erro ao creditar valor: connection reset by peer", domain.Detail(err, ""))

	assertLoanUntouched(t, f, loan.ID)
	assert.True(t, dec("25").Equal(f.balance(t, acc.ID)))
	assert.Len(t, f.transactions(t), before)
}

func TestLoanApprovalWithoutActiveAccount(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "u-1")
	acc := f.account(t, c, "1001", "0")
	ctx := context.Background()
	_, err := f.accounts.Close(ctx, staff, acc.ID)
	require.NoError(t, err)

	loan, err := f.loans.Request(ctx, staff, LoanRequest{ClientID: c.ID, Amount: dec("100"), TermMonths: 1})
	require.NoError(t, err)

	_, err = f.loans.Approve(ctx, staff, loan.ID, nil)
	assert.True(t, errors.Is(err, domain.ErrOperationFailed))
	assert.True(t, errors.Is(err, domain.ErrNoActiveAccount))
	assert.Equal(t, "Erro ao creditar valor: Cliente não possui conta ativa.", domain.Detail(err, ""))
	assertLoanUntouched(t, f, loan.ID)
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "u-1")
	f.account(t, c, "1001", "0")
	ctx := context.Background()

	short, err := f.loans.Request(ctx, staff, LoanRequest{ClientID: c.ID, Amount: dec("100"), TermMonths: 1})
	require.NoError(t, err)
	long, err := f.loans.Request(ctx, staff, LoanRequest{ClientID: c.ID, Amount: dec("100"), TermMonths: 12})
	require.NoError(t, err)
	pending, err := f.loans.Request(ctx, staff, LoanRequest{ClientID: c.ID, Amount: dec("100"), TermMonths: 1})
	require.NoError(t, err)

	_, err = f.loans.Approve(ctx, staff, short.ID, nil)
	require.NoError(t, err)
	_, err = f.loans.Approve(ctx, staff, long.ID, nil)
	require.NoError(t, err)

	// due today is not overdue yet
	f.clock.Advance(30 * 24 * time.Hour)
	n, err := f.loans.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(24 * time.Hour)
	n, err = f.loans.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.loans.Get(ctx, staff, short.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanOverdue, got.Status)

	got, err = f.loans.Get(ctx, staff, long.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanApproved, got.Status)

	got, err = f.loans.Get(ctx, staff, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanRequested, got.Status)
}

func TestLoanVisibility(t *testing.T) {
	f := newFixture(t)
	c1 := f.client(t, "u-1")
	c2 := f.client(t, "u-2")
	ctx := context.Background()

	mine, err := f.loans.Request(ctx, staff, LoanRequest{ClientID: c1.ID, Amount: dec("100"), TermMonths: 1})
	require.NoError(t, err)
	_, err = f.loans.Request(ctx, staff, LoanRequest{ClientID: c2.ID, Amount: dec("100"), TermMonths: 1})
	require.NoError(t, err)

	list, err := f.loans.List(ctx, domain.Identity{ID: "u-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	all, err := f.loans.List(ctx, staff)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.loans.Get(ctx, domain.Identity{ID: "u-2"}, mine.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
