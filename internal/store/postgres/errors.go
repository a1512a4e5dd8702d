package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/store"
)

// SQLSTATE codes handled by the store.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeSerializationFail   = "40001"
	codeDeadlockDetected    = "40P01"
)

func pgCode(err error) (string, string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}

// isRetryable reports whether the unit of work can be run again from scratch.
func isRetryable(err error) bool {
	code, _, ok := pgCode(err)
	return ok && (code == codeSerializationFail || code == codeDeadlockDetected)
}

// translate maps constraint violations to domain errors. Anything else is returned unchanged.
func translate(err error) error {
	code, constraint, ok := pgCode(err)
	if !ok {
		return err
	}
	switch code {
	case codeUniqueViolation:
		switch constraint {
		case "clients_cpf_key":
			return domain.Validation("cpf", "Já existe um cliente com este CPF.")
		case "clients_identity_id_key":
			return domain.Validation("identity_id", "Esta identidade já possui um cliente.")
		case "accounts_numero_conta_key":
			return domain.Validation("numero_conta", "Já existe uma conta com este número.")
		case "idempotency_keys_pkey":
			return domain.IdempotencyConflict()
		}
	case codeForeignKeyViolation:
		switch constraint {
		case "accounts_cliente_id_fkey", "loans_cliente_id_fkey", "investments_cliente_id_fkey":
			return domain.NotFound(store.EntityClient)
		case "transactions_conta_origem_id_fkey", "transactions_conta_destino_id_fkey":
			return domain.NotFound(store.EntityAccount)
		}
	case codeCheckViolation:
		if constraint == "accounts_saldo_check" {
			return domain.InsufficientFunds()
		}
	}
	return err
}
