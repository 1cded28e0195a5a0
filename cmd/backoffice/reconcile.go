package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	ledgerdomain "github.com/smallbiznis/backoffice/internal/ledger/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errLedgerDirty = errors.New("ledger has unrepaired violations")

var reconcileFix bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check paid amounts and cost-debt links, optionally repairing them",
	Long: `reconcile compares every debt's paid amount with the sum of its
transactions and every supplier cost with its derived debt.

The report is written to stdout as JSON. The command exits non-zero when
violations remain.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileFix, "fix", false, "repair the violations that were found")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	var (
		svc ledgerdomain.Service
		log *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		infrastructure(),
		domains(),
		fx.Populate(&svc, &log),
	)

	startCtx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	var (
		report ledgerdomain.Report
		err    error
	)
	if reconcileFix {
		report, err = svc.Repair(cmd.Context())
	} else {
		report, err = svc.Check(cmd.Context())
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	// After --fix the report lists only what Repair left open.
	log.Info("reconcile finished",
		zap.Bool("fix", reconcileFix),
		zap.Int("violations", len(report.Violations)),
		zap.Int("repaired", report.Repaired),
	)
	if !report.Clean() {
		return errLedgerDirty
	}
	return nil
}
