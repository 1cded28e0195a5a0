package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertContract(ctx context.Context, db *gorm.DB, contract *Contract) error
	InsertProject(ctx context.Context, db *gorm.DB, project *Project) error
	FindContractByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contract, error)
	FindProjectByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Project, error)
	ListContracts(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*Contract, error)
	ListProjects(ctx context.Context, db *gorm.DB, contractID *snowflake.ID, page pagination.Pagination) ([]*Project, error)
}
