package service

import (
	"context"

	"github.com/smallbiznis/backoffice/internal/config"
	"github.com/smallbiznis/backoffice/internal/debt/domain"
	transactiondomain "github.com/smallbiznis/backoffice/internal/transaction/domain"
	"github.com/smallbiznis/backoffice/pkg/db/unit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RemoverParams struct {
	fx.In

	Log    *zap.Logger
	Cfg    config.Config
	Repo   domain.Repository
	TxRepo transactiondomain.Repository
}

type remover struct {
	log     *zap.Logger
	cascade bool
	repo    domain.Repository
	txRepo  transactiondomain.Repository
}

func NewRemover(p RemoverParams) domain.Remover {
	return &remover{
		log:     p.Log.Named("debt.remover"),
		cascade: p.Cfg.Ledger.OrphanPolicy == config.OrphanPolicyCascade,
		repo:    p.Repo,
		txRepo:  p.TxRepo,
	}
}

// Remove deletes debt. Under the reject policy a debt with transactions is
// refused with ErrDebtHasTransactions; under cascade those transactions are
// deleted first, in the same unit.
func (r *remover) Remove(ctx context.Context, w *unit.Writer, debt *domain.Debt) error {
	txs, err := r.txRepo.ListByDebtID(ctx, w.DB(), debt.ID)
	if err != nil {
		return err
	}
	if len(txs) > 0 && !r.cascade {
		return domain.ErrDebtHasTransactions
	}

	for _, tx := range txs {
		tx := tx
		err := w.Step("delete transaction "+tx.ID.String(),
			func(db *gorm.DB) error {
				return r.txRepo.Delete(ctx, db, tx.ID)
			},
			func(db *gorm.DB) error {
				return r.txRepo.Insert(ctx, db, tx)
			},
		)
		if err != nil {
			return err
		}
	}
	if len(txs) > 0 {
		r.log.Info("cascading transactions with debt",
			zap.String("debt_id", debt.ID.String()),
			zap.Int("transactions", len(txs)),
		)
	}

	snapshot := *debt
	return w.Step("delete debt",
		func(db *gorm.DB) error {
			return r.repo.Delete(ctx, db, debt.ID)
		},
		func(db *gorm.DB) error {
			return r.repo.Insert(ctx, db, &snapshot)
		},
	)
}
