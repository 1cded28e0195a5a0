package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, debt *Debt) error
	// Update writes partner, total, due date and notes. It never touches paid_amount.
	Update(ctx context.Context, db *gorm.DB, debt *Debt) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Debt, error)
	FindBySourceCostID(ctx context.Context, db *gorm.DB, costID snowflake.ID) (*Debt, error)
	List(ctx context.Context, db *gorm.DB, filter ListDebtFilter, page pagination.Pagination) ([]*Debt, error)

	// IncrementPaid adds amount to paid_amount in a single statement.
	IncrementPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, at time.Time) error
	// DecrementPaidFloor subtracts amount from paid_amount, never going below zero.
	DecrementPaidFloor(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, at time.Time) error
	// SetPaid overwrites paid_amount. Only the reconciler and compensations use it.
	SetPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paid int64, at time.Time) error
}
