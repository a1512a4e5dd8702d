package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a business failure. Handlers map kinds to HTTP status codes.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindInsufficientFunds   Kind = "insufficient_funds"
	KindInvalidState        Kind = "invalid_state"
	KindNoActiveAccount     Kind = "no_active_account"
	KindAccountInactive     Kind = "account_inactive"
	KindOperationFailed     Kind = "operation_failed"
	KindIdempotencyConflict Kind = "idempotency_conflict"
	KindIdempotencyMismatch Kind = "idempotency_mismatch"
)

// Error is a structured business error. Err carries the underlying cause, if any.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Field)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Field == ""
}

var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInsufficientFunds   = &Error{Kind: KindInsufficientFunds}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrNoActiveAccount     = &Error{Kind: KindNoActiveAccount}
	ErrAccountInactive     = &Error{Kind: KindAccountInactive}
	ErrOperationFailed     = &Error{Kind: KindOperationFailed}
	ErrIdempotencyConflict = &Error{Kind: KindIdempotencyConflict}
	ErrIdempotencyMismatch = &Error{Kind: KindIdempotencyMismatch}
)

func Validation(field, message string) error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func Forbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(entity string) error {
	return &Error{Kind: KindNotFound, Message: entity + " não encontrado(a)."}
}

func InsufficientFunds() error {
	return &Error{Kind: KindInsufficientFunds, Message: "Saldo insuficiente para realizar a operação."}
}

func InvalidState(message string) error {
	return &Error{Kind: KindInvalidState, Message: message}
}

func NoActiveAccount() error {
	return &Error{Kind: KindNoActiveAccount, Message: "Cliente não possui conta ativa."}
}

func AccountInactive(accountID int64) error {
	return &Error{Kind: KindAccountInactive, Message: fmt.Sprintf("Conta %d está inativa.", accountID)}
}

func IdempotencyConflict() error {
	return &Error{Kind: KindIdempotencyConflict, Message: "Requisição com esta chave ainda está em processamento."}
}

func IdempotencyMismatch() error {
	return &Error{Kind: KindIdempotencyMismatch, Message: "Chave de idempotência reutilizada com outro conteúdo."}
}

// OperationFailed wraps a failure that aborted a multi-step sequence.
func OperationFailed(message string, cause error) error {
	return &Error{Kind: KindOperationFailed, Message: message, Err: cause}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// Detail is the caller-facing message of err. Non-domain errors yield fallback.
func Detail(err error, fallback string) string {
	var de *Error
	if !errors.As(err, &de) {
		return fallback
	}
	if de.Kind == KindOperationFailed && de.Err != nil {
		return de.Message + ": " + Detail(de.Err, de.Err.Error())
	}
	if de.Message == "" {
		return fallback
	}
	return de.Message
}
