package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tx *Transaction) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
	List(ctx context.Context, db *gorm.DB, filter ListTransactionFilter, page pagination.Pagination) ([]*Transaction, error)
	ListByDebtID(ctx context.Context, db *gorm.DB, debtID snowflake.ID) ([]*Transaction, error)
	CountByDebtID(ctx context.Context, db *gorm.DB, debtID snowflake.ID) (int64, error)
	SumByDebtID(ctx context.Context, db *gorm.DB, debtID snowflake.ID) (int64, error)
}
