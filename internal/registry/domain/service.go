package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/backoffice/pkg/db/pagination"
)

type CreateContractRequest struct {
	Code       string
	Name       string
	ClientID   string
	TotalValue string
	SignedAt   *time.Time
}

type CreateProjectRequest struct {
	Code       string
	Name       string
	ContractID string
	TotalValue string
}

type GetRequest struct {
	ID string
}

type ListContractRequest struct {
	PageToken string
	PageSize  int32
}

type ListContractResponse struct {
	pagination.PageInfo
	Contracts []Contract `json:"contracts"`
}

type ListProjectRequest struct {
	PageToken  string
	PageSize   int32
	ContractID string
}

type ListProjectResponse struct {
	pagination.PageInfo
	Projects []Project `json:"projects"`
}

// Service owns contracts and projects. The ledger only reads names and
// total values through it.
type Service interface {
	CreateContract(context.Context, CreateContractRequest) (Contract, error)
	CreateProject(context.Context, CreateProjectRequest) (Project, error)
	GetContract(context.Context, GetRequest) (Contract, error)
	GetProject(context.Context, GetRequest) (Project, error)
	ListContracts(context.Context, ListContractRequest) (ListContractResponse, error)
	ListProjects(context.Context, ListProjectRequest) (ListProjectResponse, error)

	GetTotalValue(ctx context.Context, ref ParentRef) (int64, error)
	GetName(ctx context.Context, ref ParentRef) (string, error)
}

var (
	ErrInvalidID         = errors.New("invalid_parent_id")
	ErrInvalidParentType = errors.New("invalid_parent_type")
	ErrInvalidCode       = errors.New("invalid_code")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidTotalValue = errors.New("invalid_total_value")
	ErrInvalidClient     = errors.New("invalid_client")
	ErrDuplicateCode     = errors.New("duplicate_code")
	ErrParentNotFound    = errors.New("parent_not_found")
)
