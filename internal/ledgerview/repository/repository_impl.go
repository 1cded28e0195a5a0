package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/ledgerview/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) DebtTotalsByPartner(ctx context.Context, db *gorm.DB, partnerID snowflake.ID) ([]domain.DebtTotalsRow, error) {
	var rows []domain.DebtTotalsRow
	err := db.WithContext(ctx).Raw(
		`SELECT type AS type, COUNT(1) AS count,
			COALESCE(SUM(total_amount), 0) AS total,
			COALESCE(SUM(paid_amount), 0) AS paid
		 FROM debts
		 WHERE partner_id = ?
		 GROUP BY type`,
		partnerID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
