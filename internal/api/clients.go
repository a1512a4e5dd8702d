package api

import (
	"net/http"

	"github.com/punchamoorthee/backoffice/internal/service"
	"github.com/punchamoorthee/backoffice/internal/store"
)

type createClientRequest struct {
	IdentityID string `json:"identity_id" validate:"required,max=64"`
	Name       string `json:"nome" validate:"required,max=100"`
	CPF        string `json:"cpf" validate:"required,max=14"`
	BirthDate  string `json:"data_nascimento" validate:"required,datetime=2006-01-02"`
	Phone      string `json:"telefone" validate:"max=15"`
	Address    string `json:"endereco" validate:"max=200"`
}

type updateClientRequest struct {
	Phone   *string `json:"telefone" validate:"omitempty,max=15"`
	Address *string `json:"endereco" validate:"omitempty,max=200"`
}

func (h *Handler) CreateClientHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	var req createClientRequest
	if err := h.decodeAndValidate(body, &req); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	birth, _ := parseDate(req.BirthDate)

	c, err := h.svc.Clients.Create(r.Context(), caller(r), service.CreateClientRequest{
		IdentityID: req.IdentityID,
		Name:       req.Name,
		CPF:        req.CPF,
		BirthDate:  birth,
		Phone:      req.Phone,
		Address:    req.Address,
	})
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusCreated, c)
}

func (h *Handler) GetClientHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, store.EntityClient)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	c, err := h.svc.Clients.Get(r.Context(), caller(r), id)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, c)
}

func (h *Handler) ListClientsHandler(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.Clients.List(r.Context(), caller(r))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, nonNil(cs))
}

// UpdateClientHandler accepts partial contact changes only.
func (h *Handler) UpdateClientHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, store.EntityClient)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	var req updateClientRequest
	if err := h.decodeAndValidate(body, &req); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}

	c, err := h.svc.Clients.UpdateContact(r.Context(), caller(r), id, req.Phone, req.Address)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, c)
}
