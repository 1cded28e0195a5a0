// Package unit runs a group of related writes as one logical unit.
//
// In atomic mode the writes share a single database transaction. In
// compensating mode each write commits on its own, in the order issued, and
// every successful write registers an undo. When a later write fails the
// undos run in reverse order; if an undo fails too the caller receives a
// *PartialFailureError naming the invariant left broken.
package unit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Mode string

const (
	ModeAtomic       Mode = "atomic"
	ModeCompensating Mode = "compensating"
)

func ParseMode(raw string) Mode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ModeCompensating)) {
		return ModeCompensating
	}
	return ModeAtomic
}

// Target identifies the entity whose consistency the unit protects.
type Target struct {
	Invariant string
	Entity    string
	EntityID  string
}

// Observer is notified when compensation runs.
type Observer interface {
	RecordCompensation(ctx context.Context, entity string, succeeded bool)
}

// PartialFailureError reports a unit that could not be fully undone.
type PartialFailureError struct {
	Target          Target
	Step            string
	Err             error
	CompensationErr error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial_failure: %s violated on %s %s after step %q: %v (compensation: %v)",
		e.Target.Invariant, e.Target.Entity, e.Target.EntityID, e.Step, e.Err, e.CompensationErr)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// AsPartialFailure extracts a *PartialFailureError from err.
func AsPartialFailure(err error) (*PartialFailureError, bool) {
	var pf *PartialFailureError
	if errors.As(err, &pf) && pf != nil {
		return pf, true
	}
	return nil, false
}

type Runner struct {
	db       *gorm.DB
	mode     Mode
	log      *zap.Logger
	observer Observer
}

func NewRunner(db *gorm.DB, mode Mode, log *zap.Logger, observer Observer) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if mode != ModeCompensating {
		mode = ModeAtomic
	}
	return &Runner{db: db, mode: mode, log: log.Named("unit"), observer: observer}
}

func (r *Runner) Mode() Mode { return r.mode }

// Run executes fn as one unit. fn must perform every read and write of the
// unit through the Writer it receives.
func (r *Runner) Run(ctx context.Context, target Target, fn func(ctx context.Context, w *Writer) error) error {
	if r.mode == ModeAtomic {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(ctx, &Writer{db: tx})
		})
	}

	w := &Writer{db: r.db.WithContext(ctx), compensating: true}
	err := fn(ctx, w)
	if err == nil {
		return nil
	}
	if len(w.undo) == 0 {
		return err
	}

	// Compensation must finish even when the caller has gone away.
	undoCtx := context.WithoutCancel(ctx)
	base := r.db.WithContext(undoCtx)
	for i := len(w.undo) - 1; i >= 0; i-- {
		step := w.undo[i]
		if undoErr := step.fn(base); undoErr != nil {
			pf := &PartialFailureError{
				Target:          target,
				Step:            w.failedStep,
				Err:             err,
				CompensationErr: fmt.Errorf("undo %s: %w", step.name, undoErr),
			}
			r.log.Error("write unit left partially applied",
				zap.String("invariant", target.Invariant),
				zap.String("entity", target.Entity),
				zap.String("entity_id", target.EntityID),
				zap.String("failed_step", w.failedStep),
				zap.String("undo_step", step.name),
				zap.Error(err),
				zap.NamedError("compensation_error", undoErr),
			)
			if r.observer != nil {
				r.observer.RecordCompensation(undoCtx, target.Entity, false)
			}
			return pf
		}
	}

	r.log.Warn("write unit compensated",
		zap.String("entity", target.Entity),
		zap.String("entity_id", target.EntityID),
		zap.String("failed_step", w.failedStep),
		zap.Error(err),
	)
	if r.observer != nil {
		r.observer.RecordCompensation(undoCtx, target.Entity, true)
	}
	return err
}

type undoStep struct {
	name string
	fn   func(db *gorm.DB) error
}

// Writer is the handle a unit body uses for its reads and writes.
type Writer struct {
	db           *gorm.DB
	compensating bool
	undo         []undoStep
	failedStep   string
}

// DB returns the handle to read and write through.
func (w *Writer) DB() *gorm.DB { return w.db }

// Step performs a write. undo may be nil when the write has nothing to revert.
func (w *Writer) Step(name string, do func(db *gorm.DB) error, undo func(db *gorm.DB) error) error {
	if err := do(w.db); err != nil {
		w.failedStep = name
		return err
	}
	if w.compensating && undo != nil {
		w.undo = append(w.undo, undoStep{name: name, fn: undo})
	}
	return nil
}
