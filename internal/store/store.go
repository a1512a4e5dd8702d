// Package store defines the unit-of-work boundary used by the services.
//
// Every read takes an access.Scope: records outside the scope behave as if
// they did not exist. Mutations are only available inside WithTx, and a unit
// either commits every change it made or none of them.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
)

// Entity names used in NotFound details.
const (
	EntityClient      = "Cliente"
	EntityAccount     = "Conta"
	EntityTransaction = "Transação"
	EntityLoan        = "Empréstimo"
	EntityInvestment  = "Investimento"
)

// Reader is the scoped query surface shared by stores and units of work.
type Reader interface {
	GetClient(ctx context.Context, scope access.Scope, id int64) (*domain.Client, error)
	ListClients(ctx context.Context, scope access.Scope) ([]domain.Client, error)

	GetAccount(ctx context.Context, scope access.Scope, id int64) (*domain.Account, error)
	ListAccounts(ctx context.Context, scope access.Scope) ([]domain.Account, error)

	GetTransaction(ctx context.Context, scope access.Scope, id uuid.UUID) (*domain.Transaction, error)
	// ListTransactions scopes by the owner of the origin account.
	ListTransactions(ctx context.Context, scope access.Scope) ([]domain.Transaction, error)
	// ListStatement returns settled transactions where accountID is origin or
	// destination, newest first, with from inclusive and to exclusive.
	ListStatement(ctx context.Context, scope access.Scope, accountID int64, from, to *time.Time) ([]domain.Transaction, error)

	GetLoan(ctx context.Context, scope access.Scope, id int64) (*domain.Loan, error)
	ListLoans(ctx context.Context, scope access.Scope) ([]domain.Loan, error)

	GetInvestment(ctx context.Context, scope access.Scope, id int64) (*domain.Investment, error)
	ListInvestments(ctx context.Context, scope access.Scope) ([]domain.Investment, error)
}

// Tx is a unit of work. Locks taken through it are held until the unit ends.
type Tx interface {
	Reader

	// LockAccounts locks the given accounts in ascending id order.
	// A missing id fails with NotFound.
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error)
	// FirstActiveAccount locks and returns the client's active account with the
	// lowest id, or fails with NoActiveAccount.
	FirstActiveAccount(ctx context.Context, clientID int64) (*domain.Account, error)
	// AdjustBalance adds delta to the account balance and returns the new balance.
	AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error)
	InsertAccount(ctx context.Context, a *domain.Account) error
	SetAccountActive(ctx context.Context, accountID int64, active bool) error

	InsertClient(ctx context.Context, c *domain.Client) error
	UpdateClientContact(ctx context.Context, clientID int64, phone, address string) error

	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error

	InsertLoan(ctx context.Context, l *domain.Loan) error
	LockLoan(ctx context.Context, id int64) (*domain.Loan, error)
	UpdateLoan(ctx context.Context, l *domain.Loan) error
	// MarkLoansOverdue moves approved loans due before today to overdue.
	MarkLoansOverdue(ctx context.Context, today time.Time) (int64, error)

	InsertInvestment(ctx context.Context, inv *domain.Investment) error

	// GetIdempotency returns nil when the key is unknown.
	GetIdempotency(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	// ReserveIdempotency fails with IdempotencyConflict if the key already exists.
	ReserveIdempotency(ctx context.Context, key, requestHash string) error
	CompleteIdempotency(ctx context.Context, key string, transactionID uuid.UUID) error
}

// TxFunc is the body of a unit of work. Returning an error rolls it back.
type TxFunc func(ctx context.Context, tx Tx) error

type Store interface {
	Reader
	// WithTx runs fn in a unit of work. fn may be invoked again when the
	// backend reports a transient serialization failure.
	WithTx(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
	Close()
}
