package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/smallbiznis/backoffice/pkg/db/option"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

const debtColumns = `id, partner_id, type, total_amount, paid_amount, due_date, notes, source_cost_id, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, debt *domain.Debt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO debts (`+debtColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.ID,
		debt.PartnerID,
		debt.Type,
		debt.TotalAmount,
		debt.PaidAmount,
		debt.DueDate,
		debt.Notes,
		debt.SourceCostID,
		debt.CreatedAt,
		debt.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, debt *domain.Debt) error {
	return db.WithContext(ctx).Exec(
		`UPDATE debts SET partner_id = ?, total_amount = ?, due_date = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		debt.PartnerID,
		debt.TotalAmount,
		debt.DueDate,
		debt.Notes,
		debt.UpdatedAt,
		debt.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return affected(db.WithContext(ctx).Exec(`DELETE FROM debts WHERE id = ?`, id))
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Debt, error) {
	var debt domain.Debt
	err := db.WithContext(ctx).Raw(
		`SELECT `+debtColumns+` FROM debts WHERE id = ?`,
		id,
	).Scan(&debt).Error
	if err != nil {
		return nil, err
	}
	if debt.ID == 0 {
		return nil, nil
	}
	return &debt, nil
}

func (r *repo) FindBySourceCostID(ctx context.Context, db *gorm.DB, costID snowflake.ID) (*domain.Debt, error) {
	var debt domain.Debt
	err := db.WithContext(ctx).Raw(
		`SELECT `+debtColumns+` FROM debts WHERE source_cost_id = ?`,
		costID,
	).Scan(&debt).Error
	if err != nil {
		return nil, err
	}
	if debt.ID == 0 {
		return nil, nil
	}
	return &debt, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListDebtFilter, page pagination.Pagination) ([]*domain.Debt, error) {
	var debts []*domain.Debt
	stmt := db.WithContext(ctx).Model(&domain.Debt{})
	if filter.PartnerID != nil {
		stmt = stmt.Where("partner_id = ?", *filter.PartnerID)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.Derived != nil {
		if *filter.Derived {
			stmt = stmt.Where("source_cost_id IS NOT NULL")
		} else {
			stmt = stmt.Where("source_cost_id IS NULL")
		}
	}
	if filter.Outstanding {
		stmt = stmt.Where("total_amount > paid_amount")
	}
	if filter.DueBefore != nil {
		stmt = stmt.Where("due_date IS NOT NULL AND due_date < ?", *filter.DueBefore)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&debts).Error
	if err != nil {
		return nil, err
	}
	return debts, nil
}

func (r *repo) IncrementPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE debts SET paid_amount = paid_amount + ?, updated_at = ? WHERE id = ?`,
		amount, at, id,
	).Error
}

func (r *repo) DecrementPaidFloor(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE debts
		 SET paid_amount = CASE WHEN paid_amount - ? < 0 THEN 0 ELSE paid_amount - ? END,
		     updated_at = ?
		 WHERE id = ?`,
		amount, amount, at, id,
	).Error
}

func (r *repo) SetPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paid int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE debts SET paid_amount = ?, updated_at = ? WHERE id = ?`,
		paid, at, id,
	).Error
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrDebtNotFound
	}
	return nil
}
