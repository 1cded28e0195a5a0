package authorization

import (
	"context"
	"errors"
)

const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleEmployee   = "employee"
)

const (
	ObjectPartner     = "partner"
	ObjectContract    = "contract"
	ObjectProject     = "project"
	ObjectCost        = "cost"
	ObjectDebt        = "debt"
	ObjectTransaction = "transaction"
	ObjectReport      = "report"
	ObjectLedger      = "ledger"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionLedgerCheck  = "ledger.check"
	ActionLedgerRepair = "ledger.repair"
)

// Service decides whether a role may perform an action on an object. It is
// consulted by the HTTP layer only.
type Service interface {
	Authorize(ctx context.Context, role string, object string, action string) error
	Roles() []string
}

var (
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
