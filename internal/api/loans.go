package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/backoffice/internal/service"
	"github.com/punchamoorthee/backoffice/internal/store"
)

type requestLoanRequest struct {
	ClientID   int64           `json:"cliente_id" validate:"required,gt=0"`
	Amount     decimal.Decimal `json:"valor_solicitado" validate:"positive_decimal"`
	TermMonths int             `json:"prazo_meses" validate:"required,gt=0"`
}

type approveLoanRequest struct {
	ApprovedAmount *decimal.Decimal `json:"valor_aprovado"`
}

func (h *Handler) CreateLoanHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	var req requestLoanRequest
	if err := h.decodeAndValidate(body, &req); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	loan, err := h.svc.Loans.Request(r.Context(), caller(r), service.LoanRequest{
		ClientID:   req.ClientID,
		Amount:     req.Amount,
		TermMonths: req.TermMonths,
	})
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusCreated, loan)
}

func (h *Handler) GetLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, store.EntityLoan)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	loan, err := h.svc.Loans.Get(r.Context(), caller(r), id)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, loan)
}

func (h *Handler) ListLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.Loans.List(r.Context(), caller(r))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, nonNil(loans))
}

// ApproveLoanHandler approves and disburses a requested loan. An empty body
// approves the requested amount.
func (h *Handler) ApproveLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, store.EntityLoan)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	var req approveLoanRequest
	if len(body) > 0 {
		if err := h.decodeAndValidate(body, &req); err != nil {
			h.respondWithDomainError(w, r, err)
			return
		}
	}

	loan, err := h.svc.Loans.Approve(r.Context(), caller(r), id, req.ApprovedAmount)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, loan)
}

func (h *Handler) DenyLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, store.EntityLoan)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	loan, err := h.svc.Loans.Deny(r.Context(), caller(r), id)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, loan)
}
