package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/backoffice/pkg/db/pagination"
)

type CreatePartnerRequest struct {
	Kind     string
	Name     string
	Phone    string
	Email    string
	Address  string
	Metadata map[string]any
}

type UpdatePartnerRequest struct {
	ID       string
	Name     *string
	Phone    *string
	Email    *string
	Address  *string
	Metadata map[string]any
}

type GetPartnerRequest struct {
	ID string
}

type DeletePartnerRequest struct {
	ID string
}

type ListPartnerRequest struct {
	PageToken string
	PageSize  int32
	Kind      string
	Name      string
}

type ListPartnerFilter struct {
	Kind Kind
	Name string
}

type ListPartnerResponse struct {
	pagination.PageInfo
	Partners []Partner `json:"partners"`
}

type Service interface {
	Create(context.Context, CreatePartnerRequest) (Partner, error)
	Update(context.Context, UpdatePartnerRequest) (Partner, error)
	Delete(context.Context, DeletePartnerRequest) error
	GetByID(context.Context, GetPartnerRequest) (Partner, error)
	List(context.Context, ListPartnerRequest) (ListPartnerResponse, error)
}

var (
	ErrInvalidID    = errors.New("invalid_partner_id")
	ErrInvalidKind  = errors.New("invalid_partner_kind")
	ErrInvalidName  = errors.New("invalid_partner_name")
	ErrInvalidEmail = errors.New("invalid_partner_email")
	ErrNotFound     = errors.New("partner_not_found")
	ErrPartnerInUse = errors.New("partner_in_use")
)
