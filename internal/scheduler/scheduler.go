package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	ledgerdomain "github.com/smallbiznis/backoffice/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/backoffice/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobLedgerAudit = "ledger_audit"

var ErrInvalidConfig = errors.New("scheduler: invalid config")

var auditedInvariants = []string{
	ledgerdomain.InvariantPaidSum,
	ledgerdomain.InvariantCostDebtLink,
}

type Params struct {
	fx.In

	Log       *zap.Logger
	LedgerSvc ledgerdomain.Service
	GenID     *snowflake.Node
	Clock     clock.Clock
	Metrics   *obsmetrics.SchedulerMetrics `optional:"true"`
	Config    Config                       `optional:"true"`
}

// Scheduler periodically audits the ledger invariants.
type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	genID     *snowflake.Node
	clock     clock.Clock
	ledgerSvc ledgerdomain.Service
	metrics   *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.LedgerSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		genID:     p.GenID,
		clock:     p.Clock,
		ledgerSvc: p.LedgerSvc,
		metrics:   p.Metrics,
	}, nil
}

// runJob runs fn under timeout. A deadline is a soft failure: it is logged
// and counted but not returned.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, jobLedgerAudit, s.cfg.JobTimeout, s.LedgerAuditJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// LedgerAuditJob checks the ledger and, when AutoRepair is set, repairs the
// drift it finds. The open violation gauge reflects what is left afterwards.
func (s *Scheduler) LedgerAuditJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	log := s.logger(ctx)

	report, err := s.ledgerSvc.Check(ctx)
	if err != nil {
		return err
	}
	run.AddProcessed(len(report.Violations))
	for _, v := range report.Violations {
		log.Warn("ledger.violation",
			zap.String("invariant", v.Invariant),
			zap.String("entity", v.Entity),
			zap.String("entity_id", v.EntityID),
			zap.Int64("expected", v.Expected),
			zap.Int64("actual", v.Actual),
			zap.String("detail", v.Detail),
		)
	}

	if s.cfg.AutoRepair && !report.Clean() {
		// Repair returns only the violations it could not fix.
		if report, err = s.ledgerSvc.Repair(ctx); err != nil {
			return err
		}
		log.Info("ledger.repaired",
			zap.Int("repaired", report.Repaired),
			zap.Int("remaining", len(report.Violations)),
		)
		if !report.Clean() {
			run.IncError()
		}
	}

	open := make(map[string]int, len(auditedInvariants))
	for _, v := range report.Violations {
		open[v.Invariant]++
	}
	s.metrics.SetOpenViolations(auditedInvariants, open)
	return nil
}
