package ledger

import (
	"github.com/smallbiznis/backoffice/internal/config"
	"github.com/smallbiznis/backoffice/internal/ledger/repository"
	"github.com/smallbiznis/backoffice/internal/ledger/service"
	obsmetrics "github.com/smallbiznis/backoffice/internal/observability/metrics"
	"github.com/smallbiznis/backoffice/pkg/db/unit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("ledger.service",
	fx.Provide(NewRunner),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

type RunnerParams struct {
	fx.In

	DB         *gorm.DB
	Cfg        config.Config
	Log        *zap.Logger
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// NewRunner builds the write-unit runner in the configured write mode.
func NewRunner(p RunnerParams) *unit.Runner {
	runner := unit.NewRunner(p.DB, unit.ParseMode(p.Cfg.Ledger.WriteMode), p.Log, p.ObsMetrics)
	p.Log.Named("ledger").Info("write units configured",
		zap.String("mode", string(runner.Mode())),
		zap.String("orphan_policy", p.Cfg.Ledger.OrphanPolicy),
	)
	return runner
}
