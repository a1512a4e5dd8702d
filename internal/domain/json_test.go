package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyRendersWithCents(t *testing.T) {
	acc, err := json.Marshal(Account{ID: 7, Number: "1001", Balance: decimal.RequireFromString("379.5")})
	require.NoError(t, err)
	assert.Contains(t, string(acc), `"saldo":"379.50"`)
	assert.Contains(t, string(acc), `"numero_conta":"1001"`)

	tx, err := json.Marshal(Transaction{Kind: KindDeposit, Amount: decimal.NewFromInt(1500)})
	require.NoError(t, err)
	assert.Contains(t, string(tx), `"valor":"1500.00"`)
	assert.Contains(t, string(tx), `"tipo":"DEP"`)

	inv, err := json.Marshal(Investment{AppliedAmount: decimal.NewFromInt(200), AnnualYield: decimal.RequireFromString("12.5")})
	require.NoError(t, err)
	assert.Contains(t, string(inv), `"valor_aplicado":"200.00"`)
	assert.Contains(t, string(inv), `"rentabilidade":"12.50"`)
}

func TestLoanRendersPendingApprovalAsNull(t *testing.T) {
	out, err := json.Marshal(Loan{
		RequestedAmount: decimal.NewFromInt(1000),
		InterestRate:    decimal.RequireFromString("1.5"),
		TermMonths:      12,
		Status:          LoanRequested,
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"valor_solicitado":"1000.00"`)
	assert.Contains(t, string(out), `"taxa_juros":"1.50"`)
	assert.Contains(t, string(out), `"valor_aprovado":null`)
	assert.Contains(t, string(out), `"parcela_mensal":null`)

	approved, err := json.Marshal(Loan{
		ApprovedAmount:     decimal.NewNullDecimal(decimal.NewFromInt(800)),
		MonthlyInstallment: decimal.NewNullDecimal(decimal.RequireFromString("91.68")),
	})
	require.NoError(t, err)
	assert.Contains(t, string(approved), `"valor_aprovado":"800.00"`)
	assert.Contains(t, string(approved), `"parcela_mensal":"91.68"`)
}

func TestMoneyDecodesBack(t *testing.T) {
	out, err := json.Marshal(Account{Balance: decimal.RequireFromString("10.1")})
	require.NoError(t, err)

	var back Account
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, decimal.RequireFromString("10.10").Equal(back.Balance))
}
