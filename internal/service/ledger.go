package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
)

// MoveRequest is one money movement against an origin account and, for
// transfers, a destination account.
type MoveRequest struct {
	OriginAccountID      int64
	DestinationAccountID *int64
	Kind                 domain.TransactionKind
	Amount               decimal.Decimal
	Description          string
}

func (r MoveRequest) validate() error {
	if !r.Kind.Valid() {
		return domain.Validation("tipo", "Tipo de transação inválido.")
	}
	if err := domain.ValidateAmount("valor", r.Amount); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Description) > 200 {
		return domain.Validation("descricao", "A descrição deve ter até 200 caracteres.")
	}
	if r.Kind == domain.KindTransfer {
		if r.DestinationAccountID == nil {
			return domain.Validation("conta_destino_id", "Conta de destino é obrigatória para transferências.")
		}
		if *r.DestinationAccountID == r.OriginAccountID {
			return domain.Validation("conta_destino_id", "A conta de destino deve ser diferente da conta de origem.")
		}
	} else if r.DestinationAccountID != nil {
		return domain.Validation("conta_destino_id", "Conta de destino só é permitida em transferências.")
	}
	return nil
}

// LedgerEngine executes money movements. Every movement settles in the same
// unit of work that records it.
type LedgerEngine struct {
	store    store.Store
	accounts AccountStore
	log      *logrus.Logger
	now      func() time.Time
}

func NewLedgerEngine(st store.Store, log *logrus.Logger, opts ...Option) *LedgerEngine {
	o := buildOptions(opts)
	return &LedgerEngine{store: st, log: log, now: o.now}
}

// Move validates and settles req on behalf of caller.
func (e *LedgerEngine) Move(ctx context.Context, caller domain.Identity, req MoveRequest) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := e.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := e.move(ctx, tx, caller, req)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	ledgerMovementsTotal.WithLabelValues(string(req.Kind), outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	e.logSettled(out, false)
	return out, nil
}

// MoveIdempotent is Move guarded by an idempotency key. A repeated key with the
// same request hash returns the original transaction with replayed set and
// no further balance effect. Keys are scoped to the caller's identity.
func (e *LedgerEngine) MoveIdempotent(ctx context.Context, caller domain.Identity, req MoveRequest, key, requestHash string) (*domain.Transaction, bool, error) {
	key = idempotencyScope(caller, key)
	var (
		out      *domain.Transaction
		replayed bool
	)
	err := e.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		out, replayed = nil, false

		rec, err := tx.GetIdempotency(ctx, key)
		if err != nil {
			return err
		}
		if rec != nil {
			if rec.RequestHash != requestHash {
				return domain.IdempotencyMismatch()
			}
			if rec.Status != domain.IdempotencyCompleted {
				return domain.IdempotencyConflict()
			}
			t, err := tx.GetTransaction(ctx, access.For(caller), rec.TransactionID)
			if err != nil {
				return err
			}
			out, replayed = t, true
			return nil
		}

		if err := tx.ReserveIdempotency(ctx, key, requestHash); err != nil {
			return err
		}
		t, err := e.move(ctx, tx, caller, req)
		if err != nil {
			return err
		}
		if err := tx.CompleteIdempotency(ctx, key, t.ID); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		ledgerMovementsTotal.WithLabelValues(string(req.Kind), outcome(err)).Inc()
		return nil, false, err
	}
	if replayed {
		ledgerMovementsTotal.WithLabelValues(string(req.Kind), "replayed").Inc()
	} else {
		ledgerMovementsTotal.WithLabelValues(string(req.Kind), "ok").Inc()
	}
	e.logSettled(out, replayed)
	return out, replayed, nil
}

func idempotencyScope(caller domain.Identity, key string) string {
	return caller.ID + ":" + key
}

// move runs inside an open unit of work so loan and investment flows can
// combine it with their own writes.
func (e *LedgerEngine) move(ctx context.Context, tx store.Tx, caller domain.Identity, req MoveRequest) (*domain.Transaction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ids := []int64{req.OriginAccountID}
	if req.DestinationAccountID != nil {
		ids = append(ids, *req.DestinationAccountID)
	}
	locked, err := tx.LockAccounts(ctx, ids...)
	if err != nil {
		return nil, err
	}
	origin := locked[req.OriginAccountID]

	if !caller.Privileged {
		owner, err := tx.GetClient(ctx, access.Unrestricted, origin.ClientID)
		if err != nil {
			return nil, err
		}
		if err := access.Authorize(caller, owner.IdentityID); err != nil {
			return nil, err
		}
	}

	if req.Kind.Debits() {
		if !origin.Active {
			return nil, domain.AccountInactive(origin.ID)
		}
		if origin.Balance.LessThan(req.Amount) {
			return nil, domain.InsufficientFunds()
		}
	}

	t := &domain.Transaction{
		ID:                   uuid.New(),
		OriginAccountID:      req.OriginAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Kind:                 req.Kind,
		Amount:               req.Amount,
		Description:          req.Description,
		Status:               domain.StatusPending,
		OccurredAt:           e.now().UTC(),
	}
	if err := tx.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}

	switch req.Kind {
	case domain.KindDeposit:
		err = e.accounts.Credit(ctx, tx, origin, req.Amount)
	case domain.KindWithdrawal, domain.KindPayment:
		err = e.accounts.Debit(ctx, tx, origin, req.Amount)
	case domain.KindTransfer:
		if err = e.accounts.Debit(ctx, tx, origin, req.Amount); err == nil {
			err = e.accounts.Credit(ctx, tx, locked[*req.DestinationAccountID], req.Amount)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := tx.UpdateTransactionStatus(ctx, t.ID, domain.StatusSettled); err != nil {
		return nil, err
	}
	t.Status = domain.StatusSettled
	return t, nil
}

func (e *LedgerEngine) logSettled(t *domain.Transaction, replayed bool) {
	fields := logrus.Fields{
		"transaction_id":    t.ID,
		"kind":              t.Kind,
		"origin_account_id": t.OriginAccountID,
		"amount":            t.Amount.String(),
		"replayed":          replayed,
	}
	if t.DestinationAccountID != nil {
		fields["destination_account_id"] = *t.DestinationAccountID
	}
	e.log.WithFields(fields).Info("transaction settled")
}

func (e *LedgerEngine) GetTransaction(ctx context.Context, caller domain.Identity, id uuid.UUID) (*domain.Transaction, error) {
	return e.store.GetTransaction(ctx, access.For(caller), id)
}

func (e *LedgerEngine) ListTransactions(ctx context.Context, caller domain.Identity) ([]domain.Transaction, error) {
	return e.store.ListTransactions(ctx, access.For(caller))
}
