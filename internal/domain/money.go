package domain

import "github.com/shopspring/decimal"

// Money columns are NUMERIC(12,2).
var (
	maxAmount  = decimal.RequireFromString("9999999999.99")
	oneHundred = decimal.NewFromInt(100)
)

// ValidateAmount checks that d is a positive amount with at most two decimal places.
func ValidateAmount(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return Validation(field, "O valor deve ser maior que zero.")
	}
	if !d.Equal(d.Truncate(2)) {
		return Validation(field, "O valor deve ter no máximo duas casas decimais.")
	}
	if d.GreaterThan(maxAmount) {
		return Validation(field, "O valor excede o limite permitido.")
	}
	return nil
}

// ValidateRate checks a percentage rate stored as NUMERIC(5,2).
func ValidateRate(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return Validation(field, "A taxa não pode ser negativa.")
	}
	if !d.Equal(d.Truncate(2)) || d.GreaterThanOrEqual(decimal.NewFromInt(1000)) {
		return Validation(field, "Taxa inválida.")
	}
	return nil
}

// MonthlyInstallment returns the annuity payment for principal over termMonths
// at monthlyRatePct percent per month, rounded to cents.
func MonthlyInstallment(principal, monthlyRatePct decimal.Decimal, termMonths int) decimal.Decimal {
	if termMonths <= 0 {
		return principal
	}
	n := decimal.NewFromInt(int64(termMonths))
	if monthlyRatePct.IsZero() {
		return principal.DivRound(n, 2)
	}
	r := monthlyRatePct.Div(oneHundred)
	growth := decimal.NewFromInt(1)
	for i := 0; i < termMonths; i++ {
		growth = growth.Mul(r.Add(decimal.NewFromInt(1)))
	}
	// P * r * (1+r)^n / ((1+r)^n - 1)
	return principal.Mul(r).Mul(growth).DivRound(growth.Sub(decimal.NewFromInt(1)), 2)
}
