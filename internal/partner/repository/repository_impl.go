package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/partner/domain"
	"github.com/smallbiznis/backoffice/pkg/db/option"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, partner *domain.Partner) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO partners (id, kind, name, phone, email, address, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		partner.ID,
		partner.Kind,
		partner.Name,
		partner.Phone,
		partner.Email,
		partner.Address,
		partner.Metadata,
		partner.CreatedAt,
		partner.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, partner *domain.Partner) error {
	return db.WithContext(ctx).Exec(
		`UPDATE partners SET name = ?, phone = ?, email = ?, address = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		partner.Name,
		partner.Phone,
		partner.Email,
		partner.Address,
		partner.Metadata,
		partner.UpdatedAt,
		partner.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM partners WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Partner, error) {
	var partner domain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT id, kind, name, phone, email, address, metadata, created_at, updated_at
		 FROM partners WHERE id = ?`,
		id,
	).Scan(&partner).Error
	if err != nil {
		return nil, err
	}
	if partner.ID == 0 {
		return nil, nil
	}
	return &partner, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPartnerFilter, page pagination.Pagination) ([]*domain.Partner, error) {
	var partners []*domain.Partner
	stmt := db.WithContext(ctx).Model(&domain.Partner{})
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+filter.Name+"%")
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&partners).Error
	if err != nil {
		return nil, err
	}
	return partners, nil
}

func (r *repo) CountReferences(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT
			(SELECT COUNT(1) FROM costs WHERE supplier_id = ?) +
			(SELECT COUNT(1) FROM debts WHERE partner_id = ?) +
			(SELECT COUNT(1) FROM transactions WHERE partner_id = ?)`,
		id, id, id,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
