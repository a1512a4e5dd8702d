package api

import (
	"net/http"
	"time"

	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/service"
	"github.com/punchamoorthee/backoffice/internal/store"
)

type openAccountRequest struct {
	ClientID int64  `json:"cliente_id" validate:"required,gt=0"`
	Number   string `json:"numero_conta" validate:"required,max=20"`
	Branch   string `json:"agencia" validate:"required,max=10"`
	Kind     string `json:"tipo_conta" validate:"required,oneof=CC CP CS"`
}

func (h *Handler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	var req openAccountRequest
	if err := h.decodeAndValidate(body, &req); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	acc, err := h.svc.Accounts.Open(r.Context(), caller(r), service.OpenAccountRequest{
		ClientID: req.ClientID,
		Number:   req.Number,
		Branch:   req.Branch,
		Kind:     domain.AccountKind(req.Kind),
	})
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusCreated, acc)
}

func (h *Handler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, store.EntityAccount)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	acc, err := h.svc.Accounts.Get(r.Context(), caller(r), id)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, acc)
}

func (h *Handler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accs, err := h.svc.Accounts.List(r.Context(), caller(r))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, nonNil(accs))
}

// CloseAccountHandler deactivates the account; its history is kept.
func (h *Handler) CloseAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, store.EntityAccount)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	if _, err := h.svc.Accounts.Close(r.Context(), caller(r), id); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusNoContent, nil)
}

func (h *Handler) GetStatementHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, store.EntityAccount)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	from, err := queryDate(r, "data_inicio")
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	to, err := queryDate(r, "data_fim")
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	txs, err := h.svc.Accounts.Statement(r.Context(), caller(r), id, from, to)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, nonNil(txs))
}

// queryDate reads an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := parseDate(raw)
	if err != nil {
		return nil, domain.Validation(name, fieldMessages["datetime"])
	}
	return &d, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}
