package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
)

type CreateCostRequest struct {
	ParentType  string
	ParentID    string
	Category    string
	SupplierID  string
	Amount      string
	Description string
}

// UpdateCostRequest replaces the editable fields of a cost. An empty
// SupplierID clears the supplier.
type UpdateCostRequest struct {
	ID          string
	Category    string
	SupplierID  string
	Amount      string
	Description string
}

type GetCostRequest struct {
	ID string
}

type DeleteCostRequest struct {
	ID string
}

type ListCostRequest struct {
	PageToken  string
	PageSize   int32
	ParentType string
	ParentID   string
	SupplierID string
	Category   string
}

type ListCostFilter struct {
	ParentType registrydomain.ParentType
	ParentID   *snowflake.ID
	SupplierID *snowflake.ID
	Category   Category
}

type ListCostResponse struct {
	pagination.PageInfo
	Costs []Cost `json:"costs"`
}

type Service interface {
	Create(context.Context, CreateCostRequest) (Cost, error)
	Update(context.Context, UpdateCostRequest) (Cost, error)
	Delete(context.Context, DeleteCostRequest) error
	GetByID(context.Context, GetCostRequest) (Cost, error)
	List(context.Context, ListCostRequest) (ListCostResponse, error)
	Categories() []CategoryInfo
}

var (
	ErrInvalidID         = errors.New("invalid_cost_id")
	ErrInvalidParentType = errors.New("invalid_parent_type")
	ErrInvalidParentID   = errors.New("invalid_parent_id")
	ErrInvalidCategory   = errors.New("invalid_category")
	ErrInvalidAmount     = errors.New("invalid_cost_amount")
	ErrInvalidSupplier   = errors.New("invalid_supplier")
	ErrParentNotFound    = errors.New("cost_parent_not_found")
	ErrSupplierNotFound  = errors.New("supplier_not_found")
	ErrCostNotFound      = errors.New("cost_not_found")
)
