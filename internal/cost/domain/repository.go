package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, cost *Cost) error
	Update(ctx context.Context, db *gorm.DB, cost *Cost) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Cost, error)
	List(ctx context.Context, db *gorm.DB, filter ListCostFilter, page pagination.Pagination) ([]*Cost, error)
	// ListByParent returns every cost of a contract or project.
	ListByParent(ctx context.Context, db *gorm.DB, parent registrydomain.ParentRef) ([]*Cost, error)
}
