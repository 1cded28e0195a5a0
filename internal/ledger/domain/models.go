package domain

import (
	"context"
	"time"
)

// Invariant names reported by write units and the reconciler.
const (
	// InvariantPaidSum: a debt's paid amount equals the sum of its live transactions.
	InvariantPaidSum = "debt_paid_sum"
	// InvariantCostDebtLink: a cost names a supplier iff it owns exactly one payable debt.
	InvariantCostDebtLink = "cost_debt_link"
)

const (
	EntityCost        = "cost"
	EntityDebt        = "debt"
	EntityTransaction = "transaction"
)

// Violation is one broken invariant found by Check.
type Violation struct {
	Invariant string `json:"invariant"`
	Entity    string `json:"entity"`
	EntityID  string `json:"entity_id"`
	Expected  int64  `json:"expected"`
	Actual    int64  `json:"actual"`
	Detail    string `json:"detail"`
}

// Report is the outcome of a reconciliation pass.
type Report struct {
	CheckedAt  time.Time   `json:"checked_at"`
	Violations []Violation `json:"violations"`
	Repaired   int         `json:"repaired"`
}

// Clean reports whether no violations were found.
func (r Report) Clean() bool { return len(r.Violations) == 0 }

// PaidDrift is a debt whose stored paid amount differs from its transactions.
type PaidDrift struct {
	DebtID     int64
	PaidAmount int64
	TxSum      int64
}

// LinkDrift describes a cost and derived debt pair out of step.
type LinkDrift struct {
	CostID     int64
	DebtID     int64
	SupplierID int64
	Amount     int64
	Kind       LinkDriftKind
}

type LinkDriftKind string

const (
	// LinkMissingDebt: cost has a supplier but no derived debt.
	LinkMissingDebt LinkDriftKind = "missing_debt"
	// LinkStrayDebt: debt points at a cost that has no supplier.
	LinkStrayDebt LinkDriftKind = "stray_debt"
	// LinkDanglingDebt: debt points at a cost that no longer exists.
	LinkDanglingDebt LinkDriftKind = "dangling_debt"
)

// Service checks and repairs the ledger invariants.
type Service interface {
	Check(ctx context.Context) (Report, error)
	Repair(ctx context.Context) (Report, error)
}
