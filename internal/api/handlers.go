package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/service"
	"github.com/punchamoorthee/backoffice/internal/store"
)

const maxIdempotencyKeyLen = 255

type createTransactionRequest struct {
	OriginAccountID      int64           `json:"conta_origem_id" validate:"required,gt=0"`
	DestinationAccountID *int64          `json:"conta_destino_id" validate:"omitempty,gt=0"`
	Kind                 string          `json:"tipo" validate:"required,oneof=DEP SAQ TRA PAG"`
	Amount               decimal.Decimal `json:"valor" validate:"positive_decimal"`
	Description          string          `json:"descricao" validate:"max=200"`
}

func (h *Handler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		h.respondWithDomainError(w, r, domain.Validation("Idempotency-Key", "Chave de idempotência muito longa."))
		return
	}

	bodyBytes, err := readBody(w, r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	var req createTransactionRequest
	if err := h.decodeAndValidate(bodyBytes, &req); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	move := service.MoveRequest{
		OriginAccountID:      req.OriginAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Kind:                 domain.TransactionKind(req.Kind),
		Amount:               req.Amount,
		Description:          req.Description,
	}

	var (
		t        *domain.Transaction
		replayed bool
	)
	if idempotencyKey == "" {
		t, err = h.svc.Ledger.Move(r.Context(), caller(r), move)
	} else {
		hash := sha256.Sum256(bodyBytes)
		t, replayed, err = h.svc.Ledger.MoveIdempotent(r.Context(), caller(r), move, idempotencyKey, hex.EncodeToString(hash[:]))
	}
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	if replayed {
		respondWithJSON(w, r, http.StatusOK, t)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/transacoes/%s/", t.ID))
	respondWithJSON(w, r, http.StatusCreated, t)
}

func (h *Handler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondWithDomainError(w, r, domain.NotFound(store.EntityTransaction))
		return
	}

	t, err := h.svc.Ledger.GetTransaction(r.Context(), caller(r), id)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, t)
}

func (h *Handler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.Ledger.ListTransactions(r.Context(), caller(r))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, nonNil(txs))
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
