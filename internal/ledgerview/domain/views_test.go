package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	costdomain "github.com/smallbiznis/backoffice/internal/cost/domain"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebtProgressOf(t *testing.T) {
	cases := []struct {
		name      string
		total     int64
		paid      int64
		remaining int64
		percent   string
	}{
		{name: "partially paid", total: 5_000_000, paid: 2_000_000, remaining: 3_000_000, percent: "40"},
		{name: "unpaid", total: 5_000_000, paid: 0, remaining: 5_000_000, percent: "0"},
		{name: "over paid", total: 1_500_000, paid: 2_000_000, remaining: -500_000, percent: "133.33"},
		{name: "zero total", total: 0, paid: 100, remaining: -100, percent: "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DebtProgressOf(debtdomain.Debt{TotalAmount: tc.total, PaidAmount: tc.paid})
			assert.Equal(t, tc.remaining, got.Remaining)
			assert.True(t, decimal.RequireFromString(tc.percent).Equal(got.PercentPaid), got.PercentPaid.String())
		})
	}
}

func TestCostSummaryOf(t *testing.T) {
	summary := CostSummaryOf([]costdomain.Cost{
		{Category: costdomain.CategoryMaterial, Amount: 100},
		{Category: costdomain.CategoryLabor, Amount: 50},
		{Category: costdomain.CategoryMaterial, Amount: 0},
		{Category: costdomain.CategoryMaterial, Amount: 25},
	})

	assert.Equal(t, int64(175), summary.Total)
	assert.Equal(t, 4, summary.Count)
	assert.Equal(t, []CategoryTotal{
		{Category: costdomain.CategoryMaterial, Total: 125, Count: 3},
		{Category: costdomain.CategoryLabor, Total: 50, Count: 1},
	}, summary.ByCategory)
}

func TestCostSummaryOfEmpty(t *testing.T) {
	summary := CostSummaryOf(nil)
	assert.Zero(t, summary.Total)
	assert.NotNil(t, summary.ByCategory)
}

func TestProfitabilityOf(t *testing.T) {
	costs := []costdomain.Cost{{Amount: 3_000_000}, {Amount: 1_000_000}}

	p := ProfitabilityOf(10_000_000, costs)
	assert.Equal(t, int64(4_000_000), p.TotalCost)
	assert.Equal(t, int64(6_000_000), p.Profit)
	require.True(t, p.HasRatio)
	require.NotNil(t, p.CostRatio)
	assert.True(t, decimal.RequireFromString("0.4").Equal(*p.CostRatio))
}

func TestProfitabilityOfZeroValueHasNoRatio(t *testing.T) {
	p := ProfitabilityOf(0, []costdomain.Cost{{Amount: 750}})

	assert.False(t, p.HasRatio)
	assert.Nil(t, p.CostRatio)
	assert.Equal(t, int64(750), p.TotalCost)
	assert.Equal(t, int64(-750), p.Profit)
}

func TestPartnerBalanceOf(t *testing.T) {
	b := PartnerBalanceOf(7, []DebtTotalsRow{
		{Type: debtdomain.TypeReceivable, Count: 2, Total: 900, Paid: 400},
		{Type: debtdomain.TypePayable, Count: 1, Total: 300, Paid: 350},
	})

	assert.Equal(t, SideTotals{Count: 2, Total: 900, Paid: 400, Outstanding: 500}, b.Receivable)
	assert.Equal(t, SideTotals{Count: 1, Total: 300, Paid: 350, Outstanding: -50}, b.Payable)
	assert.Equal(t, int64(550), b.Net)
}
