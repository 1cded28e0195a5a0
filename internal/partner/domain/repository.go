package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, partner *Partner) error
	Update(ctx context.Context, db *gorm.DB, partner *Partner) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Partner, error)
	List(ctx context.Context, db *gorm.DB, filter ListPartnerFilter, page pagination.Pagination) ([]*Partner, error)
	// CountReferences counts costs, debts and transactions naming the partner.
	CountReferences(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
