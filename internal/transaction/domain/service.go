package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/backoffice/pkg/db/pagination"
)

type PostTransactionRequest struct {
	Type            string
	PartnerID       string
	Amount          string
	TransactionDate *time.Time
	DebtID          string
	Description     string
}

type DeleteTransactionRequest struct {
	ID string
}

// AmendTransactionRequest replaces a transaction. Nil fields keep their value.
type AmendTransactionRequest struct {
	ID              string
	Amount          *string
	TransactionDate *time.Time
	Description     *string
}

type GetTransactionRequest struct {
	ID string
}

type ListTransactionRequest struct {
	PageToken string
	PageSize  int32
	DebtID    string
	PartnerID string
	Type      string
	DateFrom  *time.Time
	DateTo    *time.Time
}

type ListTransactionFilter struct {
	DebtID    *int64
	PartnerID *int64
	Type      Type
	DateFrom  *time.Time
	DateTo    *time.Time
}

type ListTransactionResponse struct {
	pagination.PageInfo
	Transactions []Transaction `json:"transactions"`
}

type Service interface {
	Post(context.Context, PostTransactionRequest) (Transaction, error)
	Delete(context.Context, DeleteTransactionRequest) error
	Amend(context.Context, AmendTransactionRequest) (Transaction, error)
	GetByID(context.Context, GetTransactionRequest) (Transaction, error)
	List(context.Context, ListTransactionRequest) (ListTransactionResponse, error)
}

var (
	ErrInvalidID           = errors.New("invalid_transaction_id")
	ErrInvalidType         = errors.New("invalid_transaction_type")
	ErrInvalidAmount       = errors.New("invalid_transaction_amount")
	ErrInvalidPartner      = errors.New("invalid_transaction_partner")
	ErrInvalidDebt         = errors.New("invalid_transaction_debt")
	ErrInvalidDateRange    = errors.New("invalid_date_range")
	ErrPartnerNotFound     = errors.New("transaction_partner_not_found")
	ErrDebtNotFound        = errors.New("transaction_debt_not_found")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrTypeMismatch        = errors.New("transaction_type_mismatch")
)
