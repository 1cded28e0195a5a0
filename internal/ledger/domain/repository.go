package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository runs the cross-table queries the reconciler needs.
type Repository interface {
	PaidDrifts(ctx context.Context, db *gorm.DB) ([]PaidDrift, error)
	LinkDrifts(ctx context.Context, db *gorm.DB) ([]LinkDrift, error)
}
