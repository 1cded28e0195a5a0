package repository

import (
	"context"

	"github.com/smallbiznis/backoffice/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) PaidDrifts(ctx context.Context, db *gorm.DB) ([]domain.PaidDrift, error) {
	var drifts []domain.PaidDrift
	err := db.WithContext(ctx).Raw(
		`SELECT d.id AS debt_id, d.paid_amount AS paid_amount, COALESCE(t.total, 0) AS tx_sum
		 FROM debts d
		 LEFT JOIN (
			SELECT debt_id, SUM(amount) AS total
			FROM transactions
			WHERE debt_id IS NOT NULL
			GROUP BY debt_id
		 ) t ON t.debt_id = d.id
		 WHERE d.paid_amount <> COALESCE(t.total, 0)
		 ORDER BY d.id`,
	).Scan(&drifts).Error
	if err != nil {
		return nil, err
	}
	return drifts, nil
}

func (r *repo) LinkDrifts(ctx context.Context, db *gorm.DB) ([]domain.LinkDrift, error) {
	var missing []domain.LinkDrift
	err := db.WithContext(ctx).Raw(
		`SELECT c.id AS cost_id, c.supplier_id AS supplier_id, c.amount AS amount
		 FROM costs c
		 LEFT JOIN debts d ON d.source_cost_id = c.id
		 WHERE c.supplier_id IS NOT NULL AND d.id IS NULL
		 ORDER BY c.id`,
	).Scan(&missing).Error
	if err != nil {
		return nil, err
	}

	var stray []domain.LinkDrift
	err = db.WithContext(ctx).Raw(
		`SELECT c.id AS cost_id, d.id AS debt_id
		 FROM debts d
		 JOIN costs c ON c.id = d.source_cost_id
		 WHERE c.supplier_id IS NULL
		 ORDER BY d.id`,
	).Scan(&stray).Error
	if err != nil {
		return nil, err
	}

	var dangling []domain.LinkDrift
	err = db.WithContext(ctx).Raw(
		`SELECT d.source_cost_id AS cost_id, d.id AS debt_id
		 FROM debts d
		 LEFT JOIN costs c ON c.id = d.source_cost_id
		 WHERE d.source_cost_id IS NOT NULL AND c.id IS NULL
		 ORDER BY d.id`,
	).Scan(&dangling).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.LinkDrift, 0, len(missing)+len(stray)+len(dangling))
	for _, d := range missing {
		d.Kind = domain.LinkMissingDebt
		out = append(out, d)
	}
	for _, d := range stray {
		d.Kind = domain.LinkStrayDebt
		out = append(out, d)
	}
	for _, d := range dangling {
		d.Kind = domain.LinkDanglingDebt
		out = append(out, d)
	}
	return out, nil
}
