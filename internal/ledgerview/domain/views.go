package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	costdomain "github.com/smallbiznis/backoffice/internal/cost/domain"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
)

var hundred = decimal.NewFromInt(100)

// DebtProgress shows how far a debt has been settled.
type DebtProgress struct {
	DebtID      snowflake.ID    `json:"debt_id"`
	TotalAmount int64           `json:"total_amount"`
	PaidAmount  int64           `json:"paid_amount"`
	Remaining   int64           `json:"remaining"`
	PercentPaid decimal.Decimal `json:"percent_paid"`
}

// DebtProgressOf computes remaining = total - paid, which is negative when
// over-paid. PercentPaid is 0 for a zero-total debt.
func DebtProgressOf(debt debtdomain.Debt) DebtProgress {
	progress := DebtProgress{
		DebtID:      debt.ID,
		TotalAmount: debt.TotalAmount,
		PaidAmount:  debt.PaidAmount,
		Remaining:   debt.TotalAmount - debt.PaidAmount,
		PercentPaid: decimal.Zero,
	}
	if debt.TotalAmount > 0 {
		progress.PercentPaid = decimal.NewFromInt(debt.PaidAmount).
			Mul(hundred).
			DivRound(decimal.NewFromInt(debt.TotalAmount), 2)
	}
	return progress
}

type CategoryTotal struct {
	Category costdomain.Category `json:"category"`
	Total    int64               `json:"total"`
	Count    int                 `json:"count"`
}

type CostSummary struct {
	Total      int64           `json:"total"`
	Count      int             `json:"count"`
	ByCategory []CategoryTotal `json:"by_category"`
}

// CostSummaryOf totals costs overall and per category, categories in first-seen order.
func CostSummaryOf(costs []costdomain.Cost) CostSummary {
	summary := CostSummary{ByCategory: []CategoryTotal{}}
	index := make(map[costdomain.Category]int)
	for _, c := range costs {
		summary.Total += c.Amount
		summary.Count++

		i, ok := index[c.Category]
		if !ok {
			i = len(summary.ByCategory)
			index[c.Category] = i
			summary.ByCategory = append(summary.ByCategory, CategoryTotal{Category: c.Category})
		}
		summary.ByCategory[i].Total += c.Amount
		summary.ByCategory[i].Count++
	}
	return summary
}

// Profitability compares a contract or project value against its costs.
// CostRatio is nil and HasRatio false when the value is zero.
type Profitability struct {
	TotalValue int64            `json:"total_value"`
	TotalCost  int64            `json:"total_cost"`
	Profit     int64            `json:"profit"`
	CostRatio  *decimal.Decimal `json:"cost_ratio"`
	HasRatio   bool             `json:"has_ratio"`
}

func ProfitabilityOf(totalValue int64, costs []costdomain.Cost) Profitability {
	totalCost := CostSummaryOf(costs).Total
	p := Profitability{
		TotalValue: totalValue,
		TotalCost:  totalCost,
		Profit:     totalValue - totalCost,
	}
	if totalValue == 0 {
		return p
	}
	ratio := decimal.NewFromInt(totalCost).DivRound(decimal.NewFromInt(totalValue), 4)
	p.CostRatio = &ratio
	p.HasRatio = true
	return p
}

// SideTotals aggregates the debts of one side for a partner.
type SideTotals struct {
	Count       int   `json:"count"`
	Total       int64 `json:"total"`
	Paid        int64 `json:"paid"`
	Outstanding int64 `json:"outstanding"`
}

type PartnerBalance struct {
	PartnerID  snowflake.ID `json:"partner_id"`
	Receivable SideTotals   `json:"receivable"`
	Payable    SideTotals   `json:"payable"`
	// Net is what the partner owes us minus what we owe them.
	Net int64 `json:"net"`
}

// DebtTotalsRow is one per-type aggregate row loaded from the store.
type DebtTotalsRow struct {
	Type  debtdomain.Type
	Count int
	Total int64
	Paid  int64
}

func PartnerBalanceOf(partnerID snowflake.ID, rows []DebtTotalsRow) PartnerBalance {
	balance := PartnerBalance{PartnerID: partnerID}
	for _, row := range rows {
		side := SideTotals{
			Count:       row.Count,
			Total:       row.Total,
			Paid:        row.Paid,
			Outstanding: row.Total - row.Paid,
		}
		switch row.Type {
		case debtdomain.TypeReceivable:
			balance.Receivable = side
		case debtdomain.TypePayable:
			balance.Payable = side
		}
	}
	balance.Net = balance.Receivable.Outstanding - balance.Payable.Outstanding
	return balance
}
