package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	"github.com/smallbiznis/backoffice/internal/config"
	"github.com/smallbiznis/backoffice/internal/cost/domain"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/smallbiznis/backoffice/internal/debtlock"
	ledgerdomain "github.com/smallbiznis/backoffice/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/backoffice/internal/observability/metrics"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
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
	DebtRepo    debtdomain.Repository
	DebtRemover debtdomain.Remover
	PartnerRepo partnerdomain.Repository
	Registry    registrydomain.Service
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

// Service keeps every cost and its derived payable debt in step.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	scale       int32
	genID       *snowflake.Node
	clock       clock.Clock
	runner      *unit.Runner
	locker      debtlock.Locker
	repo        domain.Repository
	debtRepo    debtdomain.Repository
	debtRemover debtdomain.Remover
	partnerRepo partnerdomain.Repository
	registry    registrydomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("cost.service"),
		scale:       p.Cfg.Ledger.CurrencyScale,
		genID:       p.GenID,
		clock:       p.Clock,
		runner:      p.Runner,
		locker:      p.Locker,
		repo:        p.Repo,
		debtRepo:    p.DebtRepo,
		debtRemover: p.DebtRemover,
		partnerRepo: p.PartnerRepo,
		registry:    p.Registry,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCostRequest) (domain.Cost, error) {
	parentType, ok := registrydomain.ParseParentType(req.ParentType)
	if !ok {
		return domain.Cost{}, domain.ErrInvalidParentType
	}
	parentID, err := snowflake.ParseString(strings.TrimSpace(req.ParentID))
	if err != nil || parentID == 0 {
		return domain.Cost{}, domain.ErrInvalidParentID
	}

	fields, err := s.validateFields(ctx, req.Category, req.Amount, req.SupplierID)
	if err != nil {
		return domain.Cost{}, err
	}

	parent := registrydomain.ParentRef{Type: parentType, ID: parentID}
	parentName, err := s.parentName(ctx, parent)
	if err != nil {
		return domain.Cost{}, err
	}

	now := s.clock.Now()
	cost := domain.Cost{
		ID:          s.genID.Generate(),
		ParentType:  parentType,
		ParentID:    parentID,
		Category:    fields.category,
		SupplierID:  fields.supplierID,
		Amount:      fields.amount,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var derived *debtdomain.Debt
	err = s.runner.Run(ctx, linkTarget(cost.ID), func(ctx context.Context, w *unit.Writer) error {
		err := w.Step("insert cost",
			func(db *gorm.DB) error {
				return s.repo.Insert(ctx, db, &cost)
			},
			func(db *gorm.DB) error {
				return s.repo.Delete(ctx, db, cost.ID)
			},
		)
		if err != nil || cost.SupplierID == nil {
			return err
		}

		derived, err = s.insertDerivedDebt(ctx, w, &cost, parentName, now)
		return err
	})
	if err != nil {
		return domain.Cost{}, err
	}

	if derived != nil {
		s.obsMetrics.RecordDerivedDebtChange(ctx, "create")
		s.log.Info("derived debt created",
			zap.String("cost_id", cost.ID.String()),
			zap.String("debt_id", derived.ID.String()),
		)
	}
	return cost, nil
}

// Update rewrites a cost and re-establishes its derived debt. The existing
// debt is looked up by source cost first so repeated updates never create a
// second one.
func (s *Service) Update(ctx context.Context, req domain.UpdateCostRequest) (domain.Cost, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Cost{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Cost{}, err
	}
	if existing == nil {
		return domain.Cost{}, domain.ErrCostNotFound
	}

	fields, err := s.validateFields(ctx, req.Category, req.Amount, req.SupplierID)
	if err != nil {
		return domain.Cost{}, err
	}

	parentName, err := s.parentName(ctx, existing.Parent())
	if err != nil {
		return domain.Cost{}, err
	}

	linked, err := s.debtRepo.FindBySourceCostID(ctx, s.db, id)
	if err != nil {
		return domain.Cost{}, err
	}
	if linked != nil {
		release, err := s.locker.Lock(ctx, linked.ID)
		if err != nil {
			return domain.Cost{}, err
		}
		defer release()
	}

	now := s.clock.Now()
	var (
		updated domain.Cost
		action  string
	)
	err = s.runner.Run(ctx, linkTarget(id), func(ctx context.Context, w *unit.Writer) error {
		current, err := s.repo.FindByID(ctx, w.DB(), id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrCostNotFound
		}

		before := *current
		updated = *current
		updated.Category = fields.category
		updated.SupplierID = fields.supplierID
		updated.Amount = fields.amount
		updated.Description = strings.TrimSpace(req.Description)
		updated.UpdatedAt = now

		err = w.Step("update cost",
			func(db *gorm.DB) error {
				return s.repo.Update(ctx, db, &updated)
			},
			func(db *gorm.DB) error {
				return s.repo.Update(ctx, db, &before)
			},
		)
		if err != nil {
			return err
		}

		debt, err := s.debtRepo.FindBySourceCostID(ctx, w.DB(), id)
		if err != nil {
			return err
		}

		switch {
		case debt != nil && updated.SupplierID != nil:
			action = "update"
			return s.syncDerivedDebt(ctx, w, debt, &updated, parentName, now)
		case debt != nil && updated.SupplierID == nil:
			action = "delete"
			return s.debtRemover.Remove(ctx, w, debt)
		case debt == nil && updated.SupplierID != nil:
			action = "create"
			_, err := s.insertDerivedDebt(ctx, w, &updated, parentName, now)
			return err
		default:
			return nil
		}
	})
	if err != nil {
		return domain.Cost{}, err
	}

	if action != "" {
		s.obsMetrics.RecordDerivedDebtChange(ctx, action)
		s.log.Info("derived debt reconciled with cost",
			zap.String("cost_id", id.String()),
			zap.String("action", action),
		)
	}
	return updated, nil
}

// Delete removes the derived debt, subject to the orphan policy, and then the cost.
func (s *Service) Delete(ctx context.Context, req domain.DeleteCostRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrCostNotFound
	}

	linked, err := s.debtRepo.FindBySourceCostID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if linked != nil {
		release, err := s.locker.Lock(ctx, linked.ID)
		if err != nil {
			return err
		}
		defer release()
	}

	removedDebt := false
	err = s.runner.Run(ctx, linkTarget(id), func(ctx context.Context, w *unit.Writer) error {
		current, err := s.repo.FindByID(ctx, w.DB(), id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrCostNotFound
		}

		debt, err := s.debtRepo.FindBySourceCostID(ctx, w.DB(), id)
		if err != nil {
			return err
		}
		if debt != nil {
			if err := s.debtRemover.Remove(ctx, w, debt); err != nil {
				return err
			}
			removedDebt = true
		}

		snapshot := *current
		return w.Step("delete cost",
			func(db *gorm.DB) error {
				return s.repo.Delete(ctx, db, id)
			},
			func(db *gorm.DB) error {
				return s.repo.Insert(ctx, db, &snapshot)
			},
		)
	})
	if err != nil {
		return err
	}

	if removedDebt {
		s.obsMetrics.RecordDerivedDebtChange(ctx, "delete")
	}
	s.log.Info("cost deleted", zap.String("cost_id", id.String()), zap.Bool("derived_debt_removed", removedDebt))
	return nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCostRequest) (domain.Cost, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Cost{}, err
	}

	cost, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Cost{}, err
	}
	if cost == nil {
		return domain.Cost{}, domain.ErrCostNotFound
	}
	return *cost, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCostRequest) (domain.ListCostResponse, error) {
	var filter domain.ListCostFilter
	if strings.TrimSpace(req.ParentType) != "" {
		parentType, ok := registrydomain.ParseParentType(req.ParentType)
		if !ok {
			return domain.ListCostResponse{}, domain.ErrInvalidParentType
		}
		filter.ParentType = parentType
	}
	if raw := strings.TrimSpace(req.ParentID); raw != "" {
		parentID, err := snowflake.ParseString(raw)
		if err != nil || parentID == 0 {
			return domain.ListCostResponse{}, domain.ErrInvalidParentID
		}
		filter.ParentID = &parentID
	}
	if raw := strings.TrimSpace(req.SupplierID); raw != "" {
		supplierID, err := snowflake.ParseString(raw)
		if err != nil || supplierID == 0 {
			return domain.ListCostResponse{}, domain.ErrInvalidSupplier
		}
		filter.SupplierID = &supplierID
	}
	if strings.TrimSpace(req.Category) != "" {
		category, ok := domain.ParseCategory(req.Category)
		if !ok {
			return domain.ListCostResponse{}, domain.ErrInvalidCategory
		}
		filter.Category = category
	}

	pageSize := pagination.NormalizePageSize(int(req.PageSize))

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListCostResponse{}, err
	}

	items, pageInfo := pagination.Page(items, pageSize, func(c *domain.Cost) string {
		return pagination.CursorFor(c.ID.String(), c.CreatedAt)
	})

	costs := make([]domain.Cost, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		costs = append(costs, *item)
	}
	return domain.ListCostResponse{PageInfo: pageInfo, Costs: costs}, nil
}

func (s *Service) Categories() []domain.CategoryInfo {
	return domain.Categories()
}

type costFields struct {
	category   domain.Category
	amount     int64
	supplierID *snowflake.ID
}

// validateFields checks everything a create and an update share, before any write.
func (s *Service) validateFields(ctx context.Context, rawCategory, rawAmount, rawSupplier string) (costFields, error) {
	if strings.TrimSpace(rawCategory) == "" {
		return costFields{}, domain.ErrInvalidCategory
	}
	category, ok := domain.ParseCategory(rawCategory)
	if !ok {
		return costFields{}, domain.ErrInvalidCategory
	}

	amount, err := ledgerdomain.ParseAmount(rawAmount, s.scale)
	if err != nil {
		return costFields{}, domain.ErrInvalidAmount
	}

	fields := costFields{category: category, amount: amount}

	raw := strings.TrimSpace(rawSupplier)
	if raw == "" {
		return fields, nil
	}
	supplierID, err := snowflake.ParseString(raw)
	if err != nil || supplierID == 0 {
		return costFields{}, domain.ErrInvalidSupplier
	}
	supplier, err := s.partnerRepo.FindByID(ctx, s.db, supplierID)
	if err != nil {
		return costFields{}, err
	}
	if supplier == nil {
		return costFields{}, domain.ErrSupplierNotFound
	}
	if supplier.Kind != partnerdomain.KindSupplier {
		return costFields{}, domain.ErrInvalidSupplier
	}
	fields.supplierID = &supplierID
	return fields, nil
}

func (s *Service) parentName(ctx context.Context, parent registrydomain.ParentRef) (string, error) {
	name, err := s.registry.GetName(ctx, parent)
	if errors.Is(err, registrydomain.ErrParentNotFound) {
		return "", domain.ErrParentNotFound
	}
	if errors.Is(err, registrydomain.ErrInvalidParentType) {
		return "", domain.ErrInvalidParentType
	}
	return name, err
}

func (s *Service) insertDerivedDebt(ctx context.Context, w *unit.Writer, cost *domain.Cost, parentName string, now time.Time) (*debtdomain.Debt, error) {
	costID := cost.ID
	debt := &debtdomain.Debt{
		ID:           s.genID.Generate(),
		PartnerID:    *cost.SupplierID,
		Type:         debtdomain.TypePayable,
		TotalAmount:  cost.Amount,
		PaidAmount:   0,
		Notes:        domain.DerivedNotes(parentName, cost.Description),
		SourceCostID: &costID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := w.Step("insert derived debt",
		func(db *gorm.DB) error {
			return s.debtRepo.Insert(ctx, db, debt)
		},
		func(db *gorm.DB) error {
			return s.debtRepo.Delete(ctx, db, debt.ID)
		},
	)
	if err != nil {
		return nil, err
	}
	return debt, nil
}

// syncDerivedDebt copies supplier, amount and notes onto the derived debt.
// The paid amount is left alone.
func (s *Service) syncDerivedDebt(ctx context.Context, w *unit.Writer, debt *debtdomain.Debt, cost *domain.Cost, parentName string, now time.Time) error {
	before := *debt
	after := *debt
	after.PartnerID = *cost.SupplierID
	after.TotalAmount = cost.Amount
	after.Notes = domain.DerivedNotes(parentName, cost.Description)
	after.UpdatedAt = now

	return w.Step("update derived debt",
		func(db *gorm.DB) error {
			return s.debtRepo.Update(ctx, db, &after)
		},
		func(db *gorm.DB) error {
			return s.debtRepo.Update(ctx, db, &before)
		},
	)
}

func linkTarget(costID snowflake.ID) unit.Target {
	return unit.Target{
		Invariant: ledgerdomain.InvariantCostDebtLink,
		Entity:    ledgerdomain.EntityCost,
		EntityID:  costID.String(),
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
