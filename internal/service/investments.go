package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
)

type FundRequest struct {
	ClientID    int64
	Kind        domain.InvestmentKind
	Amount      decimal.Decimal
	AnnualYield decimal.Decimal
	MaturesOn   *time.Time
}

type InvestmentEngine struct {
	store  store.Store
	ledger *LedgerEngine
	log    *logrus.Logger
	now    func() time.Time
}

func NewInvestmentEngine(st store.Store, ledger *LedgerEngine, log *logrus.Logger, opts ...Option) *InvestmentEngine {
	o := buildOptions(opts)
	return &InvestmentEngine{store: st, ledger: ledger, log: log, now: o.now}
}

// Fund debits the client's first active account and records the investment.
// Both happen in one unit of work.
func (e *InvestmentEngine) Fund(ctx context.Context, caller domain.Identity, req FundRequest) (*domain.Investment, error) {
	if !req.Kind.Valid() {
		return nil, domain.Validation("tipo", "Tipo de investimento inválido.")
	}
	if err := domain.ValidateAmount("valor_aplicado", req.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateRate("rentabilidade", req.AnnualYield); err != nil {
		return nil, err
	}
	today := dateOf(e.now())
	var maturity *time.Time
	if req.MaturesOn != nil {
		d := dateOf(*req.MaturesOn)
		if d.Before(today) {
			return nil, domain.Validation("data_vencimento", "A data de vencimento não pode ser anterior à data de aplicação.")
		}
		maturity = &d
	}

	var out *domain.Investment
	err := e.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		client, err := tx.GetClient(ctx, access.Unrestricted, req.ClientID)
		if err != nil {
			return err
		}
		if err := access.Authorize(caller, client.IdentityID); err != nil {
			return err
		}

		acc, err := tx.FirstActiveAccount(ctx, client.ID)
		if err != nil {
			return err
		}
		if acc.Balance.LessThan(req.Amount) {
			return domain.InsufficientFunds()
		}

		funding, err := e.ledger.move(ctx, tx, caller, MoveRequest{
			OriginAccountID: acc.ID,
			Kind:            domain.KindWithdrawal,
			Amount:          req.Amount,
			Description:     "Aplicação em " + req.Kind.Label(),
		})
		if err != nil {
			return err
		}

		inv := &domain.Investment{
			ClientID:             client.ID,
			Kind:                 req.Kind,
			AppliedAmount:        req.Amount,
			AnnualYield:          req.AnnualYield,
			AppliedOn:            today,
			MaturesOn:            maturity,
			Active:               true,
			FundingTransactionID: funding.ID,
		}
		if err := tx.InsertInvestment(ctx, inv); err != nil {
			return domain.OperationFailed("Erro ao registrar investimento", err)
		}
		out = inv
		return nil
	})
	investmentsFundedTotal.WithLabelValues(string(req.Kind), outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"investment_id":  out.ID,
		"client_id":      out.ClientID,
		"kind":           out.Kind,
		"amount":         out.AppliedAmount.String(),
		"transaction_id": out.FundingTransactionID,
	}).Info("investment funded")
	return out, nil
}

func (e *InvestmentEngine) Get(ctx context.Context, caller domain.Identity, id int64) (*domain.Investment, error) {
	return e.store.GetInvestment(ctx, access.For(caller), id)
}

func (e *InvestmentEngine) List(ctx context.Context, caller domain.Identity) ([]domain.Investment, error) {
	return e.store.ListInvestments(ctx, access.For(caller))
}
