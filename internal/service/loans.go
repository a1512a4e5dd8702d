package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
)

// DefaultInterestRate is the monthly rate, in percent, applied to new loans.
var DefaultInterestRate = decimal.RequireFromString("1.50")

// daysPerTerm is the length of one installment period.
const daysPerTerm = 30

type LoanRequest struct {
	ClientID   int64
	Amount     decimal.Decimal
	TermMonths int
}

type LoanEngine struct {
	store  store.Store
	ledger *LedgerEngine
	log    *logrus.Logger
	now    func() time.Time
}

func NewLoanEngine(st store.Store, ledger *LedgerEngine, log *logrus.Logger, opts ...Option) *LoanEngine {
	o := buildOptions(opts)
	return &LoanEngine{store: st, ledger: ledger, log: log, now: o.now}
}

// Request opens a loan in the requested state for the client.
func (e *LoanEngine) Request(ctx context.Context, caller domain.Identity, req LoanRequest) (*domain.Loan, error) {
	if err := domain.ValidateAmount("valor_solicitado", req.Amount); err != nil {
		return nil, err
	}
	if req.TermMonths <= 0 {
		return nil, domain.Validation("prazo_meses", "O prazo deve ser maior que zero.")
	}

	loan := &domain.Loan{
		ClientID:        req.ClientID,
		RequestedAmount: req.Amount,
		InterestRate:    DefaultInterestRate,
		TermMonths:      req.TermMonths,
		RequestedOn:     e.now().UTC(),
		Status:          domain.LoanRequested,
	}
	err := e.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		client, err := tx.GetClient(ctx, access.Unrestricted, req.ClientID)
		if err != nil {
			return err
		}
		if err := access.Authorize(caller, client.IdentityID); err != nil {
			return err
		}
		return tx.InsertLoan(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"loan_id":   loan.ID,
		"client_id": loan.ClientID,
		"amount":    loan.RequestedAmount.String(),
		"term":      loan.TermMonths,
	}).Info("loan requested")
	return loan, nil
}

// Approve approves a requested loan and credits the approved amount to the
// client's first active account. If the credit cannot be made the loan stays
// requested and the error is OperationFailed wrapping the cause.
func (e *LoanEngine) Approve(ctx context.Context, caller domain.Identity, loanID int64, approvedAmount *decimal.Decimal) (*domain.Loan, error) {
	if err := access.RequirePrivileged(caller, "Apenas administradores podem aprovar empréstimos."); err != nil {
		return nil, err
	}
	if approvedAmount != nil {
		if err := domain.ValidateAmount("valor_aprovado", *approvedAmount); err != nil {
			return nil, err
		}
	}

	var out *domain.Loan
	err := e.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != domain.LoanRequested {
			return domain.InvalidState("Empréstimo não está pendente de aprovação.")
		}

		amount := loan.RequestedAmount
		if approvedAmount != nil {
			amount = *approvedAmount
		}
		approvedOn := dateOf(e.now())
		dueOn := approvedOn.AddDate(0, 0, daysPerTerm*loan.TermMonths)

		loan.ApprovedAmount = decimal.NewNullDecimal(amount)
		loan.MonthlyInstallment = decimal.NewNullDecimal(domain.MonthlyInstallment(amount, loan.InterestRate, loan.TermMonths))
		loan.ApprovedOn = &approvedOn
		loan.DueOn = &dueOn
		loan.Status = domain.LoanApproved
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}

		if err := e.disburse(ctx, tx, caller, loan); err != nil {
			return domain.OperationFailed("Erro ao creditar valor", err)
		}
		out = loan
		return nil
	})
	loanDecisionsTotal.WithLabelValues("approve", outcome(err)).Inc()
	if err != nil {
		if kind, _ := domain.KindOf(err); kind == domain.KindOperationFailed {
			e.log.WithField("loan_id", loanID).WithError(err).Error("loan approval reverted")
		}
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"loan_id":  out.ID,
		"amount":   out.ApprovedAmount.Decimal.String(),
		"due_date": out.DueOn.Format(time.DateOnly),
	}).Info("loan approved")
	return out, nil
}

func (e *LoanEngine) disburse(ctx context.Context, tx store.Tx, caller domain.Identity, loan *domain.Loan) error {
	acc, err := tx.FirstActiveAccount(ctx, loan.ClientID)
	if err != nil {
		return err
	}
	_, err = e.ledger.move(ctx, tx, caller, MoveRequest{
		OriginAccountID: acc.ID,
		Kind:            domain.KindDeposit,
		Amount:          loan.ApprovedAmount.Decimal,
		Description:     fmt.Sprintf("Empréstimo aprovado - ID: %d", loan.ID),
	})
	return err
}

// Deny rejects a requested loan. Staff only.
func (e *LoanEngine) Deny(ctx context.Context, caller domain.Identity, loanID int64) (*domain.Loan, error) {
	if err := access.RequirePrivileged(caller, "Apenas administradores podem negar empréstimos."); err != nil {
		return nil, err
	}

	var out *domain.Loan
	err := e.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != domain.LoanRequested {
			return domain.InvalidState("Empréstimo não está pendente de aprovação.")
		}
		loan.Status = domain.LoanDenied
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		out = loan
		return nil
	})
	loanDecisionsTotal.WithLabelValues("deny", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	e.log.WithField("loan_id", loanID).Info("loan denied")
	return out, nil
}

// MarkOverdue moves approved loans whose due date has passed to overdue.
// Balances are not touched.
func (e *LoanEngine) MarkOverdue(ctx context.Context) (int64, error) {
	today := dateOf(e.now())
	var n int64
	err := e.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		n, err = tx.MarkLoansOverdue(ctx, today)
		return err
	})
	if err != nil {
		return 0, err
	}
	loansOverdueTotal.Add(float64(n))
	e.log.WithFields(logrus.Fields{
		"today":   today.Format(time.DateOnly),
		"overdue": n,
	}).Info("overdue sweep finished")
	return n, nil
}

func (e *LoanEngine) Get(ctx context.Context, caller domain.Identity, id int64) (*domain.Loan, error) {
	return e.store.GetLoan(ctx, access.For(caller), id)
}

func (e *LoanEngine) List(ctx context.Context, caller domain.Identity) ([]domain.Loan, error) {
	return e.store.ListLoans(ctx, access.For(caller))
}
