package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
)

// AccountStore is the only code that changes an account balance.
// It runs inside a unit of work; the caller must already hold the row lock.
type AccountStore struct{}

// Get locks and returns one account.
func (AccountStore) Get(ctx context.Context, tx store.Tx, id int64) (*domain.Account, error) {
	locked, err := tx.LockAccounts(ctx, id)
	if err != nil {
		return nil, err
	}
	return locked[id], nil
}

// Credit adds amount to acc. Inactive accounts may still receive credits.
func (AccountStore) Credit(ctx context.Context, tx store.Tx, acc *domain.Account, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.Validation("valor", "O valor deve ser maior que zero.")
	}
	balance, err := tx.AdjustBalance(ctx, acc.ID, amount)
	if err != nil {
		return err
	}
	acc.Balance = balance
	return nil
}

// Debit takes amount out of acc.
func (AccountStore) Debit(ctx context.Context, tx store.Tx, acc *domain.Account, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.Validation("valor", "O valor deve ser maior que zero.")
	}
	if !acc.Active {
		return domain.AccountInactive(acc.ID)
	}
	if acc.Balance.LessThan(amount) {
		return domain.InsufficientFunds()
	}
	balance, err := tx.AdjustBalance(ctx, acc.ID, amount.Neg())
	if err != nil {
		return err
	}
	acc.Balance = balance
	return nil
}

// OpenAccountRequest describes a new account.
type OpenAccountRequest struct {
	ClientID int64
	Number   string
	Branch   string
	Kind     domain.AccountKind
}

func (r OpenAccountRequest) validate() error {
	if r.Number == "" || utf8.RuneCountInString(r.Number) > 20 {
		return domain.Validation("numero_conta", "Número da conta é obrigatório e deve ter até 20 caracteres.")
	}
	if r.Branch == "" || utf8.RuneCountInString(r.Branch) > 10 {
		return domain.Validation("agencia", "Agência é obrigatória e deve ter até 10 caracteres.")
	}
	if !r.Kind.Valid() {
		return domain.Validation("tipo_conta", "Tipo de conta inválido.")
	}
	return nil
}

type AccountService struct {
	store store.Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewAccountService(st store.Store, log *logrus.Logger, opts ...Option) *AccountService {
	o := buildOptions(opts)
	return &AccountService{store: st, log: log, now: o.now}
}

func (s *AccountService) Open(ctx context.Context, caller domain.Identity, req OpenAccountRequest) (*domain.Account, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	acc := &domain.Account{
		ClientID: req.ClientID,
		Number:   req.Number,
		Branch:   req.Branch,
		Kind:     req.Kind,
		Balance:  decimal.Zero,
		Active:   true,
		OpenedOn: dateOf(s.now()),
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		client, err := tx.GetClient(ctx, access.Unrestricted, req.ClientID)
		if err != nil {
			return err
		}
		if err := access.Authorize(caller, client.IdentityID); err != nil {
			return err
		}
		return tx.InsertAccount(ctx, acc)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"account_id": acc.ID,
		"client_id":  acc.ClientID,
		"kind":       acc.Kind,
	}).Info("account opened")
	return acc, nil
}

// Close deactivates the account. Its records are kept.
func (s *AccountService) Close(ctx context.Context, caller domain.Identity, id int64) (*domain.Account, error) {
	var acc *domain.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := AccountStore{}.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		client, err := tx.GetClient(ctx, access.Unrestricted, locked.ClientID)
		if err != nil {
			return err
		}
		if err := access.Authorize(caller, client.IdentityID); err != nil {
			return err
		}
		if err := tx.SetAccountActive(ctx, id, false); err != nil {
			return err
		}
		locked.Active = false
		acc = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("account_id", id).Info("account closed")
	return acc, nil
}

func (s *AccountService) Get(ctx context.Context, caller domain.Identity, id int64) (*domain.Account, error) {
	return s.store.GetAccount(ctx, access.For(caller), id)
}

func (s *AccountService) List(ctx context.Context, caller domain.Identity) ([]domain.Account, error) {
	return s.store.ListAccounts(ctx, access.For(caller))
}

// Statement returns the settled movements of an account, newest first.
// from and to are calendar days; to includes the whole day.
func (s *AccountService) Statement(ctx context.Context, caller domain.Identity, accountID int64, from, to *time.Time) ([]domain.Transaction, error) {
	var start, end *time.Time
	if from != nil {
		d := dateOf(*from)
		start = &d
	}
	if to != nil {
		d := dateOf(*to).Add(24 * time.Hour)
		end = &d
	}
	if start != nil && end != nil && !start.Before(*end) {
		return nil, domain.Validation("data_inicio", "A data inicial deve ser anterior à data final.")
	}
	return s.store.ListStatement(ctx, access.For(caller), accountID, start, end)
}
