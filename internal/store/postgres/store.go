// Package postgres implements the store on PostgreSQL through pgx.
//
// Units of work run at READ COMMITTED. Balance-affecting code locks account
// rows with SELECT ... FOR UPDATE in ascending id order, and a unit that hits
// a serialization failure or deadlock is retried from the start.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/access"
	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
)

//go:embed schema.sql
var schema string

const defaultMaxAttempts = 3

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	reader
	pool        *pgxpool.Pool
	log         *logrus.Logger
	maxAttempts int
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)

func New(ctx context.Context, connString string, log *logrus.Logger) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{
		reader:      reader{q: pool},
		pool:        pool,
		log:         log,
		maxAttempts: defaultMaxAttempts,
	}, nil
}

// Pool exposes the connection pool for bulk tooling.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) WithTx(ctx context.Context, fn store.TxFunc) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": s.maxAttempts,
		}).WithError(err).Warn("unit of work aborted by database, retrying")
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn store.TxFunc) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer pgTx.Rollback(ctx)

	if err := fn(ctx, &tx{reader: reader{q: pgTx}}); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

// scopeFilter renders the visibility predicate over the clients alias c,
// bound to parameters $n (all) and $n+1 (identity).
func scopeFilter(n int) string {
	return fmt.Sprintf("($%d::boolean OR ($%d::text <> '' AND c.identity_id = $%d::text))", n, n+1, n+1)
}

const (
	clientColumns = `c.id, c.identity_id, c.nome, c.cpf, c.data_nascimento, c.telefone, c.endereco, c.created_at, c.updated_at`

	accountColumns = `a.id, a.cliente_id, a.numero_conta, a.agencia, a.tipo_conta, a.saldo, a.ativa, a.data_abertura, a.created_at, a.updated_at`

	transactionColumns = `t.id_transacao, t.conta_origem_id, t.conta_destino_id, t.tipo, t.valor, t.descricao, t.status, t.data_transacao, t.created_at, t.updated_at`

	loanColumns = `l.id, l.cliente_id, l.valor_solicitado, l.valor_aprovado, l.taxa_juros, l.prazo_meses, l.parcela_mensal,
		l.data_solicitacao, l.data_aprovacao, l.data_vencimento, l.status, l.created_at, l.updated_at`

	investmentColumns = `i.id, i.cliente_id, i.tipo, i.valor_aplicado, i.rentabilidade, i.data_aplicacao, i.data_vencimento,
		i.ativo, i.transacao_id, i.created_at, i.updated_at`
)

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	err := row.Scan(&c.ID, &c.IdentityID, &c.Name, &c.CPF, &c.BirthDate, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var (
		a    domain.Account
		kind string
	)
	err := row.Scan(&a.ID, &a.ClientID, &a.Number, &a.Branch, &kind, &a.Balance, &a.Active, &a.OpenedOn, &a.CreatedAt, &a.UpdatedAt)
	a.Kind = domain.AccountKind(kind)
	return a, err
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		t            domain.Transaction
		kind, status string
	)
	err := row.Scan(&t.ID, &t.OriginAccountID, &t.DestinationAccountID, &kind, &t.Amount, &t.Description, &status, &t.OccurredAt, &t.CreatedAt, &t.UpdatedAt)
	t.Kind, t.Status = domain.TransactionKind(kind), domain.TransactionStatus(status)
	return t, err
}

func scanLoan(row pgx.Row) (domain.Loan, error) {
	var (
		l      domain.Loan
		status string
	)
	err := row.Scan(&l.ID, &l.ClientID, &l.RequestedAmount, &l.ApprovedAmount, &l.InterestRate, &l.TermMonths, &l.MonthlyInstallment,
		&l.RequestedOn, &l.ApprovedOn, &l.DueOn, &status, &l.CreatedAt, &l.UpdatedAt)
	l.Status = domain.LoanStatus(status)
	return l, err
}

func scanInvestment(row pgx.Row) (domain.Investment, error) {
	var (
		inv  domain.Investment
		kind string
	)
	err := row.Scan(&inv.ID, &inv.ClientID, &kind, &inv.AppliedAmount, &inv.AnnualYield, &inv.AppliedOn, &inv.MaturesOn,
		&inv.Active, &inv.FundingTransactionID, &inv.CreatedAt, &inv.UpdatedAt)
	inv.Kind = domain.InvestmentKind(kind)
	return inv, err
}

func getOne[T any](ctx context.Context, q querier, entity string, scan func(pgx.Row) (T, error), sql string, args ...any) (*T, error) {
	v, err := scan(q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound(entity)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", entity, err)
	}
	return &v, nil
}

func listAll[T any](ctx context.Context, q querier, scan func(pgx.Row) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		return scan(row)
	})
}

// num renders a decimal for a NUMERIC parameter.
func num(d decimal.Decimal) string { return d.String() }

func nullNum(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

// reader implements store.Reader over a pool or an open transaction.
type reader struct {
	q querier
}

func (r reader) GetClient(ctx context.Context, scope access.Scope, id int64) (*domain.Client, error) {
	return getOne(ctx, r.q, store.EntityClient, scanClient,
		`SELECT `+clientColumns+` FROM clients c WHERE c.id = $1 AND `+scopeFilter(2),
		id, scope.All(), scope.IdentityID())
}

func (r reader) ListClients(ctx context.Context, scope access.Scope) ([]domain.Client, error) {
	return listAll(ctx, r.q, scanClient,
		`SELECT `+clientColumns+` FROM clients c WHERE `+scopeFilter(1)+` ORDER BY c.id`,
		scope.All(), scope.IdentityID())
}

func (r reader) GetAccount(ctx context.Context, scope access.Scope, id int64) (*domain.Account, error) {
	return getOne(ctx, r.q, store.EntityAccount, scanAccount,
		`SELECT `+accountColumns+` FROM accounts a JOIN clients c ON c.id = a.cliente_id
		 WHERE a.id = $1 AND `+scopeFilter(2),
		id, scope.All(), scope.IdentityID())
}

func (r reader) ListAccounts(ctx context.Context, scope access.Scope) ([]domain.Account, error) {
	return listAll(ctx, r.q, scanAccount,
		`SELECT `+accountColumns+` FROM accounts a JOIN clients c ON c.id = a.cliente_id
		 WHERE `+scopeFilter(1)+` ORDER BY a.id`,
		scope.All(), scope.IdentityID())
}

func (r reader) GetTransaction(ctx context.Context, scope access.Scope, id uuid.UUID) (*domain.Transaction, error) {
	return getOne(ctx, r.q, store.EntityTransaction, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions t
		 JOIN accounts a ON a.id = t.conta_origem_id
		 JOIN clients c ON c.id = a.cliente_id
		 WHERE t.id_transacao = $1 AND `+scopeFilter(2),
		id, scope.All(), scope.IdentityID())
}

func (r reader) ListTransactions(ctx context.Context, scope access.Scope) ([]domain.Transaction, error) {
	return listAll(ctx, r.q, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions t
		 JOIN accounts a ON a.id = t.conta_origem_id
		 JOIN clients c ON c.id = a.cliente_id
		 WHERE `+scopeFilter(1)+` ORDER BY t.data_transacao DESC, t.created_at DESC`,
		scope.All(), scope.IdentityID())
}

func (r reader) ListStatement(ctx context.Context, scope access.Scope, accountID int64, from, to *time.Time) ([]domain.Transaction, error) {
	if _, err := r.GetAccount(ctx, scope, accountID); err != nil {
		return nil, err
	}
	return listAll(ctx, r.q, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions t
		 WHERE (t.conta_origem_id = $1 OR t.conta_destino_id = $1)
		   AND t.status = 'CON'
		   AND ($2::timestamptz IS NULL OR t.data_transacao >= $2)
		   AND ($3::timestamptz IS NULL OR t.data_transacao < $3)
		 ORDER BY t.data_transacao DESC, t.created_at DESC`,
		accountID, from, to)
}

func (r reader) GetLoan(ctx context.Context, scope access.Scope, id int64) (*domain.Loan, error) {
	return getOne(ctx, r.q, store.EntityLoan, scanLoan,
		`SELECT `+loanColumns+` FROM loans l JOIN clients c ON c.id = l.cliente_id
		 WHERE l.id = $1 AND `+scopeFilter(2),
		id, scope.All(), scope.IdentityID())
}

func (r reader) ListLoans(ctx context.Context, scope access.Scope) ([]domain.Loan, error) {
	return listAll(ctx, r.q, scanLoan,
		`SELECT `+loanColumns+` FROM loans l JOIN clients c ON c.id = l.cliente_id
		 WHERE `+scopeFilter(1)+` ORDER BY l.id DESC`,
		scope.All(), scope.IdentityID())
}

func (r reader) GetInvestment(ctx context.Context, scope access.Scope, id int64) (*domain.Investment, error) {
	return getOne(ctx, r.q, store.EntityInvestment, scanInvestment,
		`SELECT `+investmentColumns+` FROM investments i JOIN clients c ON c.id = i.cliente_id
		 WHERE i.id = $1 AND `+scopeFilter(2),
		id, scope.All(), scope.IdentityID())
}

func (r reader) ListInvestments(ctx context.Context, scope access.Scope) ([]domain.Investment, error) {
	return listAll(ctx, r.q, scanInvestment,
		`SELECT `+investmentColumns+` FROM investments i JOIN clients c ON c.id = i.cliente_id
		 WHERE `+scopeFilter(1)+` ORDER BY i.id DESC`,
		scope.All(), scope.IdentityID())
}

// tx implements store.Tx over an open pgx transaction.
type tx struct {
	reader
}

func (t *tx) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error) {
	ordered := append([]int64(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	out := make(map[int64]*domain.Account, len(ordered))
	for _, id := range ordered {
		if _, seen := out[id]; seen {
			continue
		}
		acc, err := getOne(ctx, t.q, store.EntityAccount, scanAccount,
			`SELECT `+accountColumns+` FROM accounts a WHERE a.id = $1 FOR UPDATE`, id)
		if err != nil {
			return nil, err
		}
		out[id] = acc
	}
	return out, nil
}

func (t *tx) FirstActiveAccount(ctx context.Context, clientID int64) (*domain.Account, error) {
	acc, err := scanAccount(t.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts a
		 WHERE a.cliente_id = $1 AND a.ativa
		 ORDER BY a.id LIMIT 1 FOR UPDATE`, clientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NoActiveAccount()
	}
	if err != nil {
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}
	return &acc, nil
}

func (t *tx) AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.q.QueryRow(ctx,
		`UPDATE accounts SET saldo = saldo + $1::numeric, updated_at = now() WHERE id = $2 RETURNING saldo`,
		num(delta), accountID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, domain.NotFound(store.EntityAccount)
	}
	if err != nil {
		return decimal.Zero, translate(err)
	}
	return balance, nil
}

func (t *tx) InsertAccount(ctx context.Context, a *domain.Account) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO accounts (cliente_id, numero_conta, agencia, tipo_conta, saldo, ativa, data_abertura)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		 RETURNING id, created_at, updated_at`,
		a.ClientID, a.Number, a.Branch, string(a.Kind), num(a.Balance), a.Active, a.OpenedOn,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *tx) SetAccountActive(ctx context.Context, accountID int64, active bool) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE accounts SET ativa = $1, updated_at = now() WHERE id = $2`, active, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(store.EntityAccount)
	}
	return nil
}

func (t *tx) InsertClient(ctx context.Context, c *domain.Client) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO clients (identity_id, nome, cpf, data_nascimento, telefone, endereco)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		c.IdentityID, c.Name, c.CPF, c.BirthDate, c.Phone, c.Address,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *tx) UpdateClientContact(ctx context.Context, clientID int64, phone, address string) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE clients SET telefone = $1, endereco = $2, updated_at = now() WHERE id = $3`,
		phone, address, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(store.EntityClient)
	}
	return nil
}

func (t *tx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	err := t.q.QueryRow(ctx,
		`INSERT INTO transactions (id_transacao, conta_origem_id, conta_destino_id, tipo, valor, descricao, status, data_transacao)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		tr.ID, tr.OriginAccountID, tr.DestinationAccountID, string(tr.Kind), num(tr.Amount), tr.Description, string(tr.Status), tr.OccurredAt,
	).Scan(&tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *tx) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE transactions SET status = $1, updated_at = now() WHERE id_transacao = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(store.EntityTransaction)
	}
	return nil
}

func (t *tx) InsertLoan(ctx context.Context, l *domain.Loan) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO loans (cliente_id, valor_solicitado, taxa_juros, prazo_meses, data_solicitacao, status)
		 VALUES ($1, $2::numeric, $3::numeric, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		l.ClientID, num(l.RequestedAmount), num(l.InterestRate), l.TermMonths, l.RequestedOn, string(l.Status),
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *tx) LockLoan(ctx context.Context, id int64) (*domain.Loan, error) {
	return getOne(ctx, t.q, store.EntityLoan, scanLoan,
		`SELECT `+loanColumns+` FROM loans l WHERE l.id = $1 FOR UPDATE`, id)
}

func (t *tx) UpdateLoan(ctx context.Context, l *domain.Loan) error {
	err := t.q.QueryRow(ctx,
		`UPDATE loans SET valor_aprovado = $1::numeric, taxa_juros = $2::numeric, parcela_mensal = $3::numeric,
		        data_aprovacao = $4, data_vencimento = $5, status = $6, updated_at = now()
		 WHERE id = $7
		 RETURNING updated_at`,
		nullNum(l.ApprovedAmount), num(l.InterestRate), nullNum(l.MonthlyInstallment),
		l.ApprovedOn, l.DueOn, string(l.Status), l.ID,
	).Scan(&l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound(store.EntityLoan)
	}
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *tx) MarkLoansOverdue(ctx context.Context, today time.Time) (int64, error) {
	tag, err := t.q.Exec(ctx,
		`UPDATE loans SET status = 'ATR', updated_at = now()
		 WHERE status = 'APR' AND data_vencimento < $1`, today)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *tx) InsertInvestment(ctx context.Context, inv *domain.Investment) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO investments (cliente_id, tipo, valor_aplicado, rentabilidade, data_aplicacao, data_vencimento, ativo, transacao_id)
		 VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		inv.ClientID, string(inv.Kind), num(inv.AppliedAmount), num(inv.AnnualYield), inv.AppliedOn, inv.MaturesOn, inv.Active, inv.FundingTransactionID,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *tx) GetIdempotency(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	var (
		rec  domain.IdempotencyRecord
		txID uuid.NullUUID
	)
	err := t.q.QueryRow(ctx,
		`SELECT key, request_hash, status, transacao_id FROM idempotency_keys WHERE key = $1`, key,
	).Scan(&rec.Key, &rec.RequestHash, &rec.Status, &txID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency query failed: %w", err)
	}
	if txID.Valid {
		rec.TransactionID = txID.UUID
	}
	return &rec, nil
}

func (t *tx) ReserveIdempotency(ctx context.Context, key, requestHash string) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO idempotency_keys (key, request_hash, status) VALUES ($1, $2, $3)`,
		key, requestHash, domain.IdempotencyInProgress)
	if err != nil {
		if code, _, ok := pgCode(err); ok && code == codeUniqueViolation {
			return domain.IdempotencyConflict()
		}
		return fmt.Errorf("key reservation failed: %w", err)
	}
	return nil
}

func (t *tx) CompleteIdempotency(ctx context.Context, key string, transactionID uuid.UUID) error {
	_, err := t.q.Exec(ctx,
		`UPDATE idempotency_keys SET status = $1, transacao_id = $2 WHERE key = $3`,
		domain.IdempotencyCompleted, transactionID, key)
	if err != nil {
		return fmt.Errorf("idempotency update failed: %w", err)
	}
	return nil
}
