package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	costdomain "github.com/smallbiznis/backoffice/internal/cost/domain"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/smallbiznis/backoffice/internal/debtlock"
	ledgerdomain "github.com/smallbiznis/backoffice/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/backoffice/internal/observability/metrics"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	transactiondomain "github.com/smallbiznis/backoffice/internal/transaction/domain"
	"github.com/smallbiznis/backoffice/pkg/db/unit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Runner      *unit.Runner
	Locker      debtlock.Locker
	Repo        ledgerdomain.Repository
	CostRepo    costdomain.Repository
	DebtRepo    debtdomain.Repository
	DebtRemover debtdomain.Remover
	TxRepo      transactiondomain.Repository
	Registry    registrydomain.Service
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

// Service finds and repairs drift between costs, debts and transactions.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	runner      *unit.Runner
	locker      debtlock.Locker
	repo        ledgerdomain.Repository
	costRepo    costdomain.Repository
	debtRepo    debtdomain.Repository
	debtRemover debtdomain.Remover
	txRepo      transactiondomain.Repository
	registry    registrydomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		runner:      p.Runner,
		locker:      p.Locker,
		repo:        p.Repo,
		costRepo:    p.CostRepo,
		debtRepo:    p.DebtRepo,
		debtRemover: p.DebtRemover,
		txRepo:      p.TxRepo,
		registry:    p.Registry,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Check(ctx context.Context) (ledgerdomain.Report, error) {
	paid, links, err := s.scan(ctx)
	if err != nil {
		return ledgerdomain.Report{}, err
	}

	report := ledgerdomain.Report{
		CheckedAt:  s.clock.Now(),
		Violations: violations(paid, links),
	}
	if !report.Clean() {
		s.log.Warn("ledger drift detected",
			zap.Int("paid_sum_violations", len(paid)),
			zap.Int("cost_debt_link_violations", len(links)),
		)
	}
	return report, nil
}

// Repair fixes what Check finds. Paid amounts are recomputed from live
// transactions and derived debts are created or removed to match their cost.
// Items that cannot be fixed stay in the returned report.
func (s *Service) Repair(ctx context.Context) (ledgerdomain.Report, error) {
	paid, links, err := s.scan(ctx)
	if err != nil {
		return ledgerdomain.Report{}, err
	}

	paidFixed, linksFixed := 0, 0
	for _, drift := range paid {
		if err := s.repairPaid(ctx, snowflake.ID(drift.DebtID)); err != nil {
			s.log.Warn("repair paid amount", zap.Int64("debt_id", drift.DebtID), zap.Error(err))
			continue
		}
		paidFixed++
	}
	for _, drift := range links {
		if err := s.repairLink(ctx, drift); err != nil {
			s.log.Warn("repair cost debt link",
				zap.Int64("cost_id", drift.CostID),
				zap.Int64("debt_id", drift.DebtID),
				zap.String("kind", string(drift.Kind)),
				zap.Error(err),
			)
			continue
		}
		linksFixed++
	}
	s.obsMetrics.RecordInvariantRepair(ctx, ledgerdomain.InvariantPaidSum, paidFixed)
	s.obsMetrics.RecordInvariantRepair(ctx, ledgerdomain.InvariantCostDebtLink, linksFixed)
	repaired := paidFixed + linksFixed

	// Violations lists only what is still open after the repairs above.
	report, err := s.Check(ctx)
	if err != nil {
		return ledgerdomain.Report{}, err
	}
	report.Repaired = repaired

	s.log.Info("ledger repair finished",
		zap.Int("repaired", repaired),
		zap.Int("remaining", len(report.Violations)),
	)
	return report, nil
}

func (s *Service) scan(ctx context.Context) ([]ledgerdomain.PaidDrift, []ledgerdomain.LinkDrift, error) {
	paid, err := s.repo.PaidDrifts(ctx, s.db)
	if err != nil {
		return nil, nil, fmt.Errorf("scan paid drift: %w", err)
	}
	links, err := s.repo.LinkDrifts(ctx, s.db)
	if err != nil {
		return nil, nil, fmt.Errorf("scan link drift: %w", err)
	}
	return paid, links, nil
}

func (s *Service) repairPaid(ctx context.Context, debtID snowflake.ID) error {
	release, err := s.locker.Lock(ctx, debtID)
	if err != nil {
		return err
	}
	defer release()

	target := unit.Target{
		Invariant: ledgerdomain.InvariantPaidSum,
		Entity:    ledgerdomain.EntityDebt,
		EntityID:  debtID.String(),
	}
	now := s.clock.Now()
	return s.runner.Run(ctx, target, func(ctx context.Context, w *unit.Writer) error {
		debt, err := s.debtRepo.FindByID(ctx, w.DB(), debtID)
		if err != nil {
			return err
		}
		if debt == nil {
			return debtdomain.ErrDebtNotFound
		}
		sum, err := s.txRepo.SumByDebtID(ctx, w.DB(), debtID)
		if err != nil {
			return err
		}
		if sum == debt.PaidAmount {
			return nil
		}

		previous := debt.PaidAmount
		return w.Step("reset paid amount",
			func(db *gorm.DB) error {
				return s.debtRepo.SetPaid(ctx, db, debtID, sum, now)
			},
			func(db *gorm.DB) error {
				return s.debtRepo.SetPaid(ctx, db, debtID, previous, now)
			},
		)
	})
}

func (s *Service) repairLink(ctx context.Context, drift ledgerdomain.LinkDrift) error {
	costID := snowflake.ID(drift.CostID)
	target := unit.Target{
		Invariant: ledgerdomain.InvariantCostDebtLink,
		Entity:    ledgerdomain.EntityCost,
		EntityID:  costID.String(),
	}

	switch drift.Kind {
	case ledgerdomain.LinkMissingDebt:
		cost, err := s.costRepo.FindByID(ctx, s.db, costID)
		if err != nil {
			return err
		}
		if cost == nil || cost.SupplierID == nil {
			return nil
		}
		parentName, err := s.registry.GetName(ctx, cost.Parent())
		if err != nil {
			return err
		}

		now := s.clock.Now()
		debt := &debtdomain.Debt{
			ID:           s.genID.Generate(),
			PartnerID:    *cost.SupplierID,
			Type:         debtdomain.TypePayable,
			TotalAmount:  cost.Amount,
			Notes:        costdomain.DerivedNotes(parentName, cost.Description),
			SourceCostID: &costID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return s.runner.Run(ctx, target, func(ctx context.Context, w *unit.Writer) error {
			existing, err := s.debtRepo.FindBySourceCostID(ctx, w.DB(), costID)
			if err != nil || existing != nil {
				return err
			}
			return w.Step("insert derived debt",
				func(db *gorm.DB) error {
					return s.debtRepo.Insert(ctx, db, debt)
				},
				func(db *gorm.DB) error {
					return s.debtRepo.Delete(ctx, db, debt.ID)
				},
			)
		})

	case ledgerdomain.LinkStrayDebt, ledgerdomain.LinkDanglingDebt:
		debtID := snowflake.ID(drift.DebtID)
		release, err := s.locker.Lock(ctx, debtID)
		if err != nil {
			return err
		}
		defer release()

		return s.runner.Run(ctx, target, func(ctx context.Context, w *unit.Writer) error {
			debt, err := s.debtRepo.FindByID(ctx, w.DB(), debtID)
			if err != nil || debt == nil {
				return err
			}
			return s.debtRemover.Remove(ctx, w, debt)
		})

	default:
		return fmt.Errorf("unknown link drift %q", drift.Kind)
	}
}

func violations(paid []ledgerdomain.PaidDrift, links []ledgerdomain.LinkDrift) []ledgerdomain.Violation {
	out := make([]ledgerdomain.Violation, 0, len(paid)+len(links))
	for _, d := range paid {
		out = append(out, ledgerdomain.Violation{
			Invariant: ledgerdomain.InvariantPaidSum,
			Entity:    ledgerdomain.EntityDebt,
			EntityID:  strconv.FormatInt(d.DebtID, 10),
			Expected:  d.TxSum,
			Actual:    d.PaidAmount,
			Detail:    "paid amount differs from transaction sum",
		})
	}
	for _, d := range links {
		v := ledgerdomain.Violation{
			Invariant: ledgerdomain.InvariantCostDebtLink,
			Entity:    ledgerdomain.EntityCost,
			EntityID:  strconv.FormatInt(d.CostID, 10),
		}
		switch d.Kind {
		case ledgerdomain.LinkMissingDebt:
			v.Expected, v.Actual = 1, 0
			v.Detail = "cost names a supplier but has no derived debt"
		case ledgerdomain.LinkStrayDebt:
			v.Expected, v.Actual = 0, 1
			v.Detail = "derived debt " + strconv.FormatInt(d.DebtID, 10) + " belongs to a cost without supplier"
		case ledgerdomain.LinkDanglingDebt:
			v.Expected, v.Actual = 0, 1
			v.Detail = "derived debt " + strconv.FormatInt(d.DebtID, 10) + " points at a deleted cost"
		}
		out = append(out, v)
	}
	return out
}

