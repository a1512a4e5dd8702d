package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/punchamoorthee/backoffice/internal/domain"
)

var (
	ledgerMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_ledger_movements_total",
		Help: "Money movements processed, labeled by kind and outcome",
	}, []string{"kind", "outcome"})

	loanDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_loan_decisions_total",
		Help: "Loan approvals and denials, labeled by outcome",
	}, []string{"decision", "outcome"})

	investmentsFundedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_investments_funded_total",
		Help: "Investment funding attempts, labeled by instrument and outcome",
	}, []string{"kind", "outcome"})

	loansOverdueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_loans_overdue_total",
		Help: "Approved loans moved to overdue by the sweep",
	})
)

// outcome labels err by its domain kind.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind, ok := domain.KindOf(err); ok {
		return string(kind)
	}
	return "error"
}
