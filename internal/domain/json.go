package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Cents renders a NUMERIC(_,2) value with exactly two decimal places.
type Cents decimal.Decimal

func (c Cents) MarshalJSON() ([]byte, error) {
	return json.Marshal(decimal.Decimal(c).StringFixed(2))
}

// NullCents is Cents for nullable columns.
type NullCents decimal.NullDecimal

func (c NullCents) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return Cents(c.Decimal).MarshalJSON()
}

func (a Account) MarshalJSON() ([]byte, error) {
	type plain Account
	return json.Marshal(struct {
		plain
		Balance Cents `json:"saldo"`
	}{plain(a), Cents(a.Balance)})
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	return json.Marshal(struct {
		plain
		Amount Cents `json:"valor"`
	}{plain(t), Cents(t.Amount)})
}

func (l Loan) MarshalJSON() ([]byte, error) {
	type plain Loan
	return json.Marshal(struct {
		plain
		RequestedAmount    Cents     `json:"valor_solicitado"`
		ApprovedAmount     NullCents `json:"valor_aprovado"`
		InterestRate       Cents     `json:"taxa_juros"`
		MonthlyInstallment NullCents `json:"parcela_mensal"`
	}{plain(l), Cents(l.RequestedAmount), NullCents(l.ApprovedAmount), Cents(l.InterestRate), NullCents(l.MonthlyInstallment)})
}

func (i Investment) MarshalJSON() ([]byte, error) {
	type plain Investment
	return json.Marshal(struct {
		plain
		AppliedAmount Cents `json:"valor_aplicado"`
		AnnualYield   Cents `json:"rentabilidade"`
	}{plain(i), Cents(i.AppliedAmount), Cents(i.AnnualYield)})
}
