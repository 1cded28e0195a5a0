package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/cost/domain"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	"github.com/smallbiznis/backoffice/pkg/db/option"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

const costColumns = `id, parent_type, parent_id, category, supplier_id, amount, description, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, cost *domain.Cost) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO costs (`+costColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cost.ID,
		cost.ParentType,
		cost.ParentID,
		cost.Category,
		cost.SupplierID,
		cost.Amount,
		cost.Description,
		cost.CreatedAt,
		cost.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, cost *domain.Cost) error {
	return db.WithContext(ctx).Exec(
		`UPDATE costs SET category = ?, supplier_id = ?, amount = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		cost.Category,
		cost.SupplierID,
		cost.Amount,
		cost.Description,
		cost.UpdatedAt,
		cost.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	res := db.WithContext(ctx).Exec(`DELETE FROM costs WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCostNotFound
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Cost, error) {
	var cost domain.Cost
	err := db.WithContext(ctx).Raw(
		`SELECT `+costColumns+` FROM costs WHERE id = ?`,
		id,
	).Scan(&cost).Error
	if err != nil {
		return nil, err
	}
	if cost.ID == 0 {
		return nil, nil
	}
	return &cost, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCostFilter, page pagination.Pagination) ([]*domain.Cost, error) {
	var costs []*domain.Cost
	stmt := db.WithContext(ctx).Model(&domain.Cost{})
	if filter.ParentType != "" {
		stmt = stmt.Where("parent_type = ?", filter.ParentType)
	}
	if filter.ParentID != nil {
		stmt = stmt.Where("parent_id = ?", *filter.ParentID)
	}
	if filter.SupplierID != nil {
		stmt = stmt.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&costs).Error
	if err != nil {
		return nil, err
	}
	return costs, nil
}

func (r *repo) ListByParent(ctx context.Context, db *gorm.DB, parent registrydomain.ParentRef) ([]*domain.Cost, error) {
	var costs []*domain.Cost
	err := db.WithContext(ctx).Raw(
		`SELECT `+costColumns+` FROM costs WHERE parent_type = ? AND parent_id = ? ORDER BY created_at ASC, id ASC`,
		parent.Type,
		parent.ID,
	).Scan(&costs).Error
	if err != nil {
		return nil, err
	}
	return costs, nil
}
