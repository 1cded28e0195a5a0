package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"github.com/smallbiznis/backoffice/pkg/db/unit"
)

type CreateDebtRequest struct {
	PartnerID   string
	Type        string
	TotalAmount string
	DueDate     *time.Time
	Notes       string
}

// UpdateDebtRequest edits a debt. Nil fields are left unchanged.
type UpdateDebtRequest struct {
	ID           string
	PartnerID    *string
	TotalAmount  *string
	DueDate      *time.Time
	ClearDueDate bool
	Notes        *string
}

type GetDebtRequest struct {
	ID string
}

type DeleteDebtRequest struct {
	ID string
}

type ListDebtRequest struct {
	PageToken   string
	PageSize    int32
	PartnerID   string
	Type        string
	Derived     *bool
	Outstanding bool
	DueBefore   *time.Time
}

type ListDebtFilter struct {
	PartnerID   *int64
	Type        Type
	Derived     *bool
	Outstanding bool
	DueBefore   *time.Time
}

type ListDebtResponse struct {
	pagination.PageInfo
	Debts []Debt `json:"debts"`
}

type Service interface {
	Create(context.Context, CreateDebtRequest) (Debt, error)
	Update(context.Context, UpdateDebtRequest) (Debt, error)
	Delete(context.Context, DeleteDebtRequest) error
	GetByID(context.Context, GetDebtRequest) (Debt, error)
	List(context.Context, ListDebtRequest) (ListDebtResponse, error)
}

// Remover deletes a debt inside a caller's write unit. Transactions still
// referencing the debt are refused or deleted according to the orphan policy.
type Remover interface {
	Remove(ctx context.Context, w *unit.Writer, debt *Debt) error
}

var (
	ErrInvalidID           = errors.New("invalid_debt_id")
	ErrInvalidType         = errors.New("invalid_debt_type")
	ErrInvalidAmount       = errors.New("invalid_debt_amount")
	ErrInvalidPartner      = errors.New("invalid_debt_partner")
	ErrPartnerNotFound     = errors.New("debt_partner_not_found")
	ErrDebtNotFound        = errors.New("debt_not_found")
	ErrDebtOwnedByCost     = errors.New("debt_owned_by_cost")
	ErrDebtHasTransactions = errors.New("debt_has_transactions")
)
