package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type DebtProgressRequest struct {
	DebtID string
}

type ParentRequest struct {
	ParentType string
	ParentID   string
}

type PartnerBalanceRequest struct {
	PartnerID string
}

// Service recomputes every view from current store state on each call.
type Service interface {
	DebtProgress(context.Context, DebtProgressRequest) (DebtProgress, error)
	CostSummary(context.Context, ParentRequest) (CostSummary, error)
	Profitability(context.Context, ParentRequest) (Profitability, error)
	PartnerBalance(context.Context, PartnerBalanceRequest) (PartnerBalance, error)
}

type Repository interface {
	DebtTotalsByPartner(ctx context.Context, db *gorm.DB, partnerID snowflake.ID) ([]DebtTotalsRow, error)
}
