package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job failure reasons recorded on the errors counter.
const (
	SchedulerJobReasonDeadlineExceeded = "deadline_exceeded"
	SchedulerJobReasonCanceled         = "canceled"
	SchedulerJobReasonError            = "error"
)

// SchedulerMetrics tracks background job runs.
type SchedulerMetrics struct {
	runs       *prometheus.CounterVec
	errors     *prometheus.CounterVec
	timeouts   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	violations *prometheus.GaugeVec
}

func NewSchedulerMetrics() (*SchedulerMetrics, error) {
	return NewSchedulerMetricsWith(prometheus.DefaultRegisterer)
}

// NewSchedulerMetricsWith registers scheduler instruments with reg, reusing
// instruments that are already registered.
func NewSchedulerMetricsWith(reg prometheus.Registerer) (*SchedulerMetrics, error) {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_scheduler_job_runs_total",
		Help: "Counts scheduler job runs.",
	}, []string{"job"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_scheduler_job_errors_total",
		Help: "Counts failed scheduler job runs by reason.",
	}, []string{"job", "reason"})
	timeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_scheduler_job_timeouts_total",
		Help: "Counts scheduler job runs that hit their deadline.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_scheduler_job_duration_seconds",
		Help:    "Scheduler job latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	violations := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backoffice_ledger_open_violations",
		Help: "Invariant violations left open by the last ledger audit.",
	}, []string{"invariant"})

	var err error
	if runs, err = registerCounterVec(reg, runs); err != nil {
		return nil, err
	}
	if errs, err = registerCounterVec(reg, errs); err != nil {
		return nil, err
	}
	if timeouts, err = registerCounterVec(reg, timeouts); err != nil {
		return nil, err
	}
	if duration, err = registerHistogramVec(reg, duration); err != nil {
		return nil, err
	}
	if violations, err = registerGaugeVec(reg, violations); err != nil {
		return nil, err
	}
	return &SchedulerMetrics{
		runs:       runs,
		errors:     errs,
		timeouts:   timeouts,
		duration:   duration,
		violations: violations,
	}, nil
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(job, SchedulerJobReason(err)).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// SetOpenViolations replaces the per-invariant open violation counts.
// Invariants missing from counts are reset to zero.
func (m *SchedulerMetrics) SetOpenViolations(invariants []string, counts map[string]int) {
	if m == nil {
		return
	}
	for _, invariant := range invariants {
		m.violations.WithLabelValues(invariant).Set(float64(counts[invariant]))
	}
}

func SchedulerJobReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return SchedulerJobReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return SchedulerJobReasonCanceled
	default:
		return SchedulerJobReasonError
	}
}

func registerGaugeVec(reg prometheus.Registerer, g *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(g); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return g, nil
}
