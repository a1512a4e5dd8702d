package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/punchamoorthee/backoffice/internal/auth"
)

// NewRouter mounts the public probes and the authenticated resource routes.
func NewRouter(h *Handler, resolver auth.Resolver) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, r, http.StatusNotFound, "Não encontrado.")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, r, http.StatusMethodNotAllowed, "Método não permitido.")
	})
	r.Use(instrument)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(authenticate(resolver, h.log))

	api.HandleFunc("/clientes/", h.ListClientsHandler).Methods(http.MethodGet)
	api.HandleFunc("/clientes/", h.CreateClientHandler).Methods(http.MethodPost)
	api.HandleFunc("/clientes/{id:[0-9]+}/", h.GetClientHandler).Methods(http.MethodGet)
	api.HandleFunc("/clientes/{id:[0-9]+}/", h.UpdateClientHandler).Methods(http.MethodPatch)

	api.HandleFunc("/contas/", h.ListAccountsHandler).Methods(http.MethodGet)
	api.HandleFunc("/contas/", h.CreateAccountHandler).Methods(http.MethodPost)
	api.HandleFunc("/contas/{id:[0-9]+}/", h.GetAccountHandler).Methods(http.MethodGet)
	api.HandleFunc("/contas/{id:[0-9]+}/", h.CloseAccountHandler).Methods(http.MethodDelete)
	api.HandleFunc("/contas/{id:[0-9]+}/extrato/", h.GetStatementHandler).Methods(http.MethodGet)

	api.HandleFunc("/transacoes/", h.ListTransactionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/transacoes/", h.CreateTransactionHandler).Methods(http.MethodPost)
	api.HandleFunc("/transacoes/{id}/", h.GetTransactionHandler).Methods(http.MethodGet)

	api.HandleFunc("/emprestimos/", h.ListLoansHandler).Methods(http.MethodGet)
	api.HandleFunc("/emprestimos/", h.CreateLoanHandler).Methods(http.MethodPost)
	api.HandleFunc("/emprestimos/{id:[0-9]+}/", h.GetLoanHandler).Methods(http.MethodGet)
	api.HandleFunc("/emprestimos/{id:[0-9]+}/aprovar/", h.ApproveLoanHandler).Methods(http.MethodPost)
	api.HandleFunc("/emprestimos/{id:[0-9]+}/negar/", h.DenyLoanHandler).Methods(http.MethodPost)

	api.HandleFunc("/investimentos/", h.ListInvestmentsHandler).Methods(http.MethodGet)
	api.HandleFunc("/investimentos/", h.CreateInvestmentHandler).Methods(http.MethodPost)
	api.HandleFunc("/investimentos/{id:[0-9]+}/", h.GetInvestmentHandler).Methods(http.MethodGet)

	return r
}
