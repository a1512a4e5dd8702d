package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/domain"
	"github.com/punchamoorthee/backoffice/internal/service"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

const maxBodyBytes = 1 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the collaborators the handlers dispatch to.
type Services struct {
	Clients     *service.ClientService
	Accounts    *service.AccountService
	Ledger      *service.LedgerEngine
	Loans       *service.LoanEngine
	Investments *service.InvestmentEngine
	Health      Pinger
}

type Handler struct {
	svc      Services
	log      *logrus.Logger
	validate *validator.Validate
}

func NewHandler(svc Services, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log, validate: newValidator()}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if h.svc.Health != nil {
		if err := h.svc.Health.Ping(r.Context()); err != nil {
			h.log.WithError(err).Error("health check failed")
			respondWithJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Detail string `json:"detail"`
	Field  string `json:"campo,omitempty"`
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindInsufficientFunds, domain.KindInvalidState,
		domain.KindNoActiveAccount, domain.KindAccountInactive:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindIdempotencyConflict:
		return http.StatusConflict
	case domain.KindIdempotencyMismatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondWithDomainError maps err to a status code and body. Errors outside
// the domain taxonomy are logged and reported as a generic 500.
func (h *Handler) respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		h.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		respondWithJSON(w, r, http.StatusInternalServerError, errorResponse{Detail: "Erro interno."})
		return
	}

	status := statusFor(de.Kind)
	if status == http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"kind":   de.Kind,
		}).WithError(err).Error("operation failed")
	}
	respondWithJSON(w, r, status, errorResponse{
		Detail: domain.Detail(err, "Erro interno."),
		Field:  de.Field,
	})
}

func respondWithError(w http.ResponseWriter, r *http.Request, code int, message string) {
	respondWithJSON(w, r, code, errorResponse{Detail: message})
}

func respondWithJSON(w http.ResponseWriter, r *http.Request, code int, payload interface{}) {
	httpRequestsTotal.WithLabelValues(r.Method, endpointOf(r), strconv.Itoa(code)).Inc()
	if payload == nil {
		w.WriteHeader(code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// endpointOf is the matched route template, used as a low-cardinality label.
func endpointOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.Validation("", "Corpo da requisição inválido.")
	}
	return body, nil
}

func pathID(r *http.Request, entity string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NotFound(entity)
	}
	return id, nil
}
