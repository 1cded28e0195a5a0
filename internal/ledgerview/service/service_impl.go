package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	costdomain "github.com/smallbiznis/backoffice/internal/cost/domain"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/smallbiznis/backoffice/internal/ledgerview/domain"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	CostRepo    costdomain.Repository
	DebtRepo    debtdomain.Repository
	PartnerRepo partnerdomain.Repository
	Registry    registrydomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	costRepo    costdomain.Repository
	debtRepo    debtdomain.Repository
	partnerRepo partnerdomain.Repository
	registry    registrydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledgerview.service"),
		repo:        p.Repo,
		costRepo:    p.CostRepo,
		debtRepo:    p.DebtRepo,
		partnerRepo: p.PartnerRepo,
		registry:    p.Registry,
	}
}

func (s *Service) DebtProgress(ctx context.Context, req domain.DebtProgressRequest) (domain.DebtProgress, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.DebtID))
	if err != nil || id == 0 {
		return domain.DebtProgress{}, debtdomain.ErrInvalidID
	}

	debt, err := s.debtRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.DebtProgress{}, err
	}
	if debt == nil {
		return domain.DebtProgress{}, debtdomain.ErrDebtNotFound
	}
	return domain.DebtProgressOf(*debt), nil
}

func (s *Service) CostSummary(ctx context.Context, req domain.ParentRequest) (domain.CostSummary, error) {
	costs, _, err := s.loadParentCosts(ctx, req, false)
	if err != nil {
		return domain.CostSummary{}, err
	}
	return domain.CostSummaryOf(costs), nil
}

func (s *Service) Profitability(ctx context.Context, req domain.ParentRequest) (domain.Profitability, error) {
	costs, totalValue, err := s.loadParentCosts(ctx, req, true)
	if err != nil {
		return domain.Profitability{}, err
	}
	return domain.ProfitabilityOf(totalValue, costs), nil
}

func (s *Service) PartnerBalance(ctx context.Context, req domain.PartnerBalanceRequest) (domain.PartnerBalance, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.PartnerID))
	if err != nil || id == 0 {
		return domain.PartnerBalance{}, partnerdomain.ErrInvalidID
	}

	partner, err := s.partnerRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.PartnerBalance{}, err
	}
	if partner == nil {
		return domain.PartnerBalance{}, partnerdomain.ErrNotFound
	}

	rows, err := s.repo.DebtTotalsByPartner(ctx, s.db, id)
	if err != nil {
		return domain.PartnerBalance{}, err
	}
	return domain.PartnerBalanceOf(id, rows), nil
}

// loadParentCosts resolves the parent and its costs. The registry lookup also
// proves the parent exists, so an unknown id is reported rather than shown
// as an empty summary.
func (s *Service) loadParentCosts(ctx context.Context, req domain.ParentRequest, withValue bool) ([]costdomain.Cost, int64, error) {
	parentType, ok := registrydomain.ParseParentType(req.ParentType)
	if !ok {
		return nil, 0, costdomain.ErrInvalidParentType
	}
	parentID, err := snowflake.ParseString(strings.TrimSpace(req.ParentID))
	if err != nil || parentID == 0 {
		return nil, 0, costdomain.ErrInvalidParentID
	}
	parent := registrydomain.ParentRef{Type: parentType, ID: parentID}

	var totalValue int64
	if withValue {
		totalValue, err = s.registry.GetTotalValue(ctx, parent)
	} else {
		_, err = s.registry.GetName(ctx, parent)
	}
	if errors.Is(err, registrydomain.ErrParentNotFound) {
		return nil, 0, costdomain.ErrParentNotFound
	}
	if err != nil {
		return nil, 0, err
	}

	items, err := s.costRepo.ListByParent(ctx, s.db, parent)
	if err != nil {
		return nil, 0, err
	}
	costs := make([]costdomain.Cost, 0, len(items))
	for _, item := range items {
		if item != nil {
			costs = append(costs, *item)
		}
	}
	return costs, totalValue, nil
}
