package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/service"
	"github.com/punchamoorthee/backoffice/internal/store"
)

type fundInvestmentRequest struct {
	ClientID    int64            `json:"cliente_id" validate:"required,gt=0"`
	Kind        string           `json:"tipo" validate:"required,oneof=CDB LCI LCA FUN ACO"`
	Amount      decimal.Decimal  `json:"valor_aplicado" validate:"positive_decimal"`
	AnnualYield *decimal.Decimal `json:"rentabilidade" validate:"required"`
	MaturesOn   string           `json:"data_vencimento" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) CreateInvestmentHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	var req fundInvestmentRequest
	if err := h.decodeAndValidate(body, &req); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	var maturity *time.Time
	if req.MaturesOn != "" {
		d, _ := parseDate(req.MaturesOn)
		maturity = &d
	}

	inv, err := h.svc.Investments.Fund(r.Context(), caller(r), service.FundRequest{
		ClientID:    req.ClientID,
		Kind:        domain.InvestmentKind(req.Kind),
		Amount:      req.Amount,
		AnnualYield: *req.AnnualYield,
		MaturesOn:   maturity,
	})
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusCreated, inv)
}

func (h *Handler) GetInvestmentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, store.EntityInvestment)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	inv, err := h.svc.Investments.Get(r.Context(), caller(r), id)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, inv)
}

func (h *Handler) ListInvestmentsHandler(w http.ResponseWriter, r *http.Request) {
	invs, err := h.svc.Investments.List(r.Context(), caller(r))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, nonNil(invs))
}
