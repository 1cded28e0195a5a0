package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	"github.com/smallbiznis/backoffice/internal/config"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/smallbiznis/backoffice/internal/debtlock"
	ledgerdomain "github.com/smallbiznis/backoffice/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/backoffice/internal/observability/metrics"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	"github.com/smallbiznis/backoffice/internal/transaction/domain"
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
	PartnerRepo partnerdomain.Repository
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
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
	debtRepo    debtdomain.Repository
	partnerRepo partnerdomain.Repository
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("transaction.service"),
		scale:       p.Cfg.Ledger.CurrencyScale,
		genID:       p.GenID,
		clock:       p.Clock,
		runner:      p.Runner,
		locker:      p.Locker,
		repo:        p.Repo,
		debtRepo:    p.DebtRepo,
		partnerRepo: p.PartnerRepo,
		obsMetrics:  p.ObsMetrics,
	}
}

// Post records a receipt or payment. When it settles a debt the debt's paid
// amount grows by the transaction amount in the same write unit, with no cap.
func (s *Service) Post(ctx context.Context, req domain.PostTransactionRequest) (domain.Transaction, error) {
	txType, ok := domain.ParseType(req.Type)
	if !ok {
		return domain.Transaction{}, domain.ErrInvalidType
	}

	amount, err := s.parsePositiveAmount(req.Amount)
	if err != nil {
		return domain.Transaction{}, err
	}

	var debt *debtdomain.Debt
	if raw := strings.TrimSpace(req.DebtID); raw != "" {
		debtID, err := snowflake.ParseString(raw)
		if err != nil || debtID == 0 {
			return domain.Transaction{}, domain.ErrInvalidDebt
		}
		debt, err = s.debtRepo.FindByID(ctx, s.db, debtID)
		if err != nil {
			return domain.Transaction{}, err
		}
		if debt == nil {
			return domain.Transaction{}, domain.ErrDebtNotFound
		}
		if !typeMatchesDebt(txType, debt.Type) {
			return domain.Transaction{}, domain.ErrTypeMismatch
		}
	}

	partnerID, err := s.resolvePartner(ctx, req.PartnerID, debt)
	if err != nil {
		return domain.Transaction{}, err
	}

	now := s.clock.Now()
	txDate := now
	if req.TransactionDate != nil && !req.TransactionDate.IsZero() {
		txDate = req.TransactionDate.UTC()
	}

	tx := domain.Transaction{
		ID:              s.genID.Generate(),
		Type:            txType,
		PartnerID:       partnerID,
		Amount:          amount,
		TransactionDate: txDate,
		Description:     strings.TrimSpace(req.Description),
		CreatedAt:       now,
	}

	if debt == nil {
		if err := s.repo.Insert(ctx, s.db, &tx); err != nil {
			return domain.Transaction{}, err
		}
		s.obsMetrics.RecordTransactionPosted(ctx, string(tx.Type))
		return tx, nil
	}

	debtID := debt.ID
	tx.DebtID = &debtID

	release, err := s.locker.Lock(ctx, debtID)
	if err != nil {
		return domain.Transaction{}, err
	}
	defer release()

	err = s.runner.Run(ctx, paidSumTarget(debtID), func(ctx context.Context, w *unit.Writer) error {
		current, err := s.debtRepo.FindByID(ctx, w.DB(), debtID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrDebtNotFound
		}
		return s.apply(ctx, w, &tx, now)
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.obsMetrics.RecordTransactionPosted(ctx, string(tx.Type))
	s.log.Info("transaction posted",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("debt_id", debtID.String()),
		zap.String("type", string(tx.Type)),
	)
	return tx, nil
}

// Delete removes a transaction and takes its amount back off the debt,
// flooring the paid amount at zero.
func (s *Service) Delete(ctx context.Context, req domain.DeleteTransactionRequest) error {
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrTransactionNotFound
	}

	if existing.DebtID == nil {
		if err := s.repo.Delete(ctx, s.db, id); err != nil {
			return err
		}
		s.obsMetrics.RecordTransactionReversed(ctx, string(existing.Type))
		return nil
	}

	debtID := *existing.DebtID
	release, err := s.locker.Lock(ctx, debtID)
	if err != nil {
		return err
	}
	defer release()

	now := s.clock.Now()
	err = s.runner.Run(ctx, paidSumTarget(debtID), func(ctx context.Context, w *unit.Writer) error {
		tx, err := s.repo.FindByID(ctx, w.DB(), id)
		if err != nil {
			return err
		}
		if tx == nil {
			return domain.ErrTransactionNotFound
		}
		return s.reverse(ctx, w, tx, now)
	})
	if err != nil {
		return err
	}

	s.obsMetrics.RecordTransactionReversed(ctx, string(existing.Type))
	s.log.Info("transaction deleted",
		zap.String("transaction_id", id.String()),
		zap.String("debt_id", debtID.String()),
	)
	return nil
}

// Amend replaces a transaction by reversing it and posting a corrected copy
// under a new id.
func (s *Service) Amend(ctx context.Context, req domain.AmendTransactionRequest) (domain.Transaction, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Transaction{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if existing == nil {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	now := s.clock.Now()
	replacement := *existing
	replacement.ID = s.genID.Generate()
	replacement.CreatedAt = now
	if req.Amount != nil {
		amount, err := s.parsePositiveAmount(*req.Amount)
		if err != nil {
			return domain.Transaction{}, err
		}
		replacement.Amount = amount
	}
	if req.TransactionDate != nil && !req.TransactionDate.IsZero() {
		replacement.TransactionDate = req.TransactionDate.UTC()
	}
	if req.Description != nil {
		replacement.Description = strings.TrimSpace(*req.Description)
	}

	target := unit.Target{
		Invariant: ledgerdomain.InvariantPaidSum,
		Entity:    ledgerdomain.EntityTransaction,
		EntityID:  id.String(),
	}
	if existing.DebtID != nil {
		target = paidSumTarget(*existing.DebtID)
		release, err := s.locker.Lock(ctx, *existing.DebtID)
		if err != nil {
			return domain.Transaction{}, err
		}
		defer release()
	}

	err = s.runner.Run(ctx, target, func(ctx context.Context, w *unit.Writer) error {
		current, err := s.repo.FindByID(ctx, w.DB(), id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrTransactionNotFound
		}
		if err := s.reverse(ctx, w, current, now); err != nil {
			return err
		}
		return s.apply(ctx, w, &replacement, now)
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.obsMetrics.RecordTransactionReversed(ctx, string(existing.Type))
	s.obsMetrics.RecordTransactionPosted(ctx, string(replacement.Type))
	s.log.Info("transaction amended",
		zap.String("transaction_id", id.String()),
		zap.String("replacement_id", replacement.ID.String()),
	)
	return replacement, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetTransactionRequest) (domain.Transaction, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx == nil {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	return *tx, nil
}

func (s *Service) List(ctx context.Context, req domain.ListTransactionRequest) (domain.ListTransactionResponse, error) {
	filter := domain.ListTransactionFilter{
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	}
	if req.DateFrom != nil && req.DateTo != nil && req.DateTo.Before(*req.DateFrom) {
		return domain.ListTransactionResponse{}, domain.ErrInvalidDateRange
	}
	if raw := strings.TrimSpace(req.DebtID); raw != "" {
		debtID, err := snowflake.ParseString(raw)
		if err != nil || debtID == 0 {
			return domain.ListTransactionResponse{}, domain.ErrInvalidDebt
		}
		v := debtID.Int64()
		filter.DebtID = &v
	}
	if raw := strings.TrimSpace(req.PartnerID); raw != "" {
		partnerID, err := snowflake.ParseString(raw)
		if err != nil || partnerID == 0 {
			return domain.ListTransactionResponse{}, domain.ErrInvalidPartner
		}
		v := partnerID.Int64()
		filter.PartnerID = &v
	}
	if strings.TrimSpace(req.Type) != "" {
		txType, ok := domain.ParseType(req.Type)
		if !ok {
			return domain.ListTransactionResponse{}, domain.ErrInvalidType
		}
		filter.Type = txType
	}

	pageSize := pagination.NormalizePageSize(int(req.PageSize))

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListTransactionResponse{}, err
	}

	items, pageInfo := pagination.Page(items, pageSize, func(tx *domain.Transaction) string {
		return pagination.CursorFor(tx.ID.String(), tx.CreatedAt)
	})

	txs := make([]domain.Transaction, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		txs = append(txs, *item)
	}
	return domain.ListTransactionResponse{PageInfo: pageInfo, Transactions: txs}, nil
}

// apply inserts tx and adds its amount to the linked debt.
func (s *Service) apply(ctx context.Context, w *unit.Writer, tx *domain.Transaction, at time.Time) error {
	err := w.Step("insert transaction",
		func(db *gorm.DB) error {
			return s.repo.Insert(ctx, db, tx)
		},
		func(db *gorm.DB) error {
			return s.repo.Delete(ctx, db, tx.ID)
		},
	)
	if err != nil || tx.DebtID == nil {
		return err
	}

	debtID := *tx.DebtID
	return w.Step("increment paid amount",
		func(db *gorm.DB) error {
			return s.debtRepo.IncrementPaid(ctx, db, debtID, tx.Amount, at)
		},
		func(db *gorm.DB) error {
			return s.debtRepo.DecrementPaidFloor(ctx, db, debtID, tx.Amount, at)
		},
	)
}

// reverse takes tx's amount off its debt (floored at zero) and deletes tx.
func (s *Service) reverse(ctx context.Context, w *unit.Writer, tx *domain.Transaction, at time.Time) error {
	if tx.DebtID != nil {
		debtID := *tx.DebtID
		debt, err := s.debtRepo.FindByID(ctx, w.DB(), debtID)
		if err != nil {
			return err
		}
		if debt != nil {
			previousPaid := debt.PaidAmount
			err := w.Step("decrement paid amount",
				func(db *gorm.DB) error {
					return s.debtRepo.DecrementPaidFloor(ctx, db, debtID, tx.Amount, at)
				},
				func(db *gorm.DB) error {
					return s.debtRepo.SetPaid(ctx, db, debtID, previousPaid, at)
				},
			)
			if err != nil {
				return err
			}
		}
	}

	snapshot := *tx
	return w.Step("delete transaction",
		func(db *gorm.DB) error {
			return s.repo.Delete(ctx, db, tx.ID)
		},
		func(db *gorm.DB) error {
			return s.repo.Insert(ctx, db, &snapshot)
		},
	)
}

func (s *Service) resolvePartner(ctx context.Context, raw string, debt *debtdomain.Debt) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if debt == nil {
			return 0, domain.ErrInvalidPartner
		}
		return debt.PartnerID, nil
	}

	partnerID, err := snowflake.ParseString(raw)
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

func (s *Service) parsePositiveAmount(raw string) (int64, error) {
	amount, err := ledgerdomain.ParseAmount(raw, s.scale)
	if err != nil || amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return amount, nil
}

func typeMatchesDebt(txType domain.Type, debtType debtdomain.Type) bool {
	switch txType {
	case domain.TypeReceipt:
		return debtType == debtdomain.TypeReceivable
	case domain.TypePayment:
		return debtType == debtdomain.TypePayable
	default:
		return false
	}
}

func paidSumTarget(debtID snowflake.ID) unit.Target {
	return unit.Target{
		Invariant: ledgerdomain.InvariantPaidSum,
		Entity:    ledgerdomain.EntityDebt,
		EntityID:  debtID.String(),
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
