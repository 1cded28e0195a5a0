package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	"github.com/smallbiznis/backoffice/internal/config"
	"github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/smallbiznis/backoffice/internal/debtlock"
	ledgerdomain "github.com/smallbiznis/backoffice/internal/ledger/domain"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	"github.com/smallbiznis/backoffice/pkg/db/pagination"
	"github.com/smallbiznis/backoffice/pkg/db/unit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	GenID       *snowflake.Node
	Clock       clock.Clock
	Runner      *unit.Runner
	Locker      debtlock.Locker
	Repo        domain.Repository
	Remover     domain.Remover
	PartnerRepo partnerdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	scale       int32
	genID       *snowflake.Node
	clock       clock.Clock
	runner      *unit.Runner
	locker      debtlock.Locker
	repo        domain.Repository
	remover     domain.Remover
	partnerRepo partnerdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("debt.service"),
		scale:       p.Cfg.Ledger.CurrencyScale,
		genID:       p.GenID,
		clock:       p.Clock,
		runner:      p.Runner,
		locker:      p.Locker,
		repo:        p.Repo,
		remover:     p.Remover,
		partnerRepo: p.PartnerRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDebtRequest) (domain.Debt, error) {
	debtType, ok := domain.ParseType(req.Type)
	if !ok {
		return domain.Debt{}, domain.ErrInvalidType
	}

	total, err := ledgerdomain.ParseAmount(req.TotalAmount, s.scale)
	if err != nil {
		return domain.Debt{}, domain.ErrInvalidAmount
	}

	partnerID, err := s.resolvePartner(ctx, req.PartnerID)
	if err != nil {
		return domain.Debt{}, err
	}

	now := s.clock.Now()
	debt := domain.Debt{
		ID:          s.genID.Generate(),
		PartnerID:   partnerID,
		Type:        debtType,
		TotalAmount: total,
		DueDate:     req.DueDate,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &debt); err != nil {
		return domain.Debt{}, err
	}

	s.log.Info("debt created",
		zap.String("debt_id", debt.ID.String()),
		zap.String("type", string(debt.Type)),
	)
	return debt, nil
}

// Update edits a debt. Partner and total of a cost-derived debt follow the
// cost and cannot be changed here.
func (s *Service) Update(ctx context.Context, req domain.UpdateDebtRequest) (domain.Debt, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Debt{}, err
	}

	debt, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Debt{}, err
	}
	if debt == nil {
		return domain.Debt{}, domain.ErrDebtNotFound
	}

	if req.PartnerID != nil {
		partnerID, err := s.resolvePartner(ctx, *req.PartnerID)
		if err != nil {
			return domain.Debt{}, err
		}
		if debt.Derived() && partnerID != debt.PartnerID {
			return domain.Debt{}, domain.ErrDebtOwnedByCost
		}
		debt.PartnerID = partnerID
	}

	if req.TotalAmount != nil {
		total, err := ledgerdomain.ParseAmount(*req.TotalAmount, s.scale)
		if err != nil {
			return domain.Debt{}, domain.ErrInvalidAmount
		}
		if debt.Derived() && total != debt.TotalAmount {
			return domain.Debt{}, domain.ErrDebtOwnedByCost
		}
		debt.TotalAmount = total
	}

	switch {
	case req.ClearDueDate:
		debt.DueDate = nil
	case req.DueDate != nil:
		due := *req.DueDate
		debt.DueDate = &due
	}
	if req.Notes != nil {
		debt.Notes = strings.TrimSpace(*req.Notes)
	}
	debt.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, debt); err != nil {
		return domain.Debt{}, err
	}
	return *debt, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteDebtRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrDebtNotFound
	}
	if existing.Derived() {
		return domain.ErrDebtOwnedByCost
	}

	release, err := s.locker.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	target := unit.Target{
		Invariant: ledgerdomain.InvariantPaidSum,
		Entity:    ledgerdomain.EntityDebt,
		EntityID:  id.String(),
	}
	err = s.runner.Run(ctx, target, func(ctx context.Context, w *unit.Writer) error {
		debt, err := s.repo.FindByID(ctx, w.DB(), id)
		if err != nil {
			return err
		}
		if debt == nil {
			return domain.ErrDebtNotFound
		}
		return s.remover.Remove(ctx, w, debt)
	})
	if err != nil {
		return err
	}

	s.log.Info("debt deleted", zap.String("debt_id", id.String()))
	return nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetDebtRequest) (domain.Debt, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Debt{}, err
	}

	debt, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Debt{}, err
	}
	if debt == nil {
		return domain.Debt{}, domain.ErrDebtNotFound
	}
	return *debt, nil
}

func (s *Service) List(ctx context.Context, req domain.ListDebtRequest) (domain.ListDebtResponse, error) {
	filter := domain.ListDebtFilter{
		Derived:     req.Derived,
		Outstanding: req.Outstanding,
		DueBefore:   req.DueBefore,
	}
	if raw := strings.TrimSpace(req.PartnerID); raw != "" {
		partnerID, err := snowflake.ParseString(raw)
		if err != nil || partnerID == 0 {
			return domain.ListDebtResponse{}, domain.ErrInvalidPartner
		}
		v := partnerID.Int64()
		filter.PartnerID = &v
	}
	if strings.TrimSpace(req.Type) != "" {
		debtType, ok := domain.ParseType(req.Type)
		if !ok {
			return domain.ListDebtResponse{}, domain.ErrInvalidType
		}
		filter.Type = debtType
	}

	pageSize := pagination.NormalizePageSize(int(req.PageSize))

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListDebtResponse{}, err
	}

	items, pageInfo := pagination.Page(items, pageSize, func(d *domain.Debt) string {
		return pagination.CursorFor(d.ID.String(), d.CreatedAt)
	})

	debts := make([]domain.Debt, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		debts = append(debts, *item)
	}
	return domain.ListDebtResponse{PageInfo: pageInfo, Debts: debts}, nil
}

func (s *Service) resolvePartner(ctx context.Context, raw string) (snowflake.ID, error) {
	partnerID, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || partnerID == 0 {
		return 0, domain.ErrInvalidPartner
	}
	partner, err := s.partnerRepo.FindByID(ctx, s.db, partnerID)
	if err != nil {
		return 0, err
	}
	if partner == nil {
		return 0, domain.ErrPartnerNotFound
	}
	return partnerID, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
