package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/backoffice/internal/clock"
	"github.com/smallbiznis/backoffice/internal/config"
	"github.com/smallbiznis/backoffice/internal/cost"
	"github.com/smallbiznis/backoffice/internal/debt"
	"github.com/smallbiznis/backoffice/internal/debtlock"
	"github.com/smallbiznis/backoffice/internal/ledger"
	"github.com/smallbiznis/backoffice/internal/ledgerview"
	"github.com/smallbiznis/backoffice/internal/migration"
	"github.com/smallbiznis/backoffice/internal/observability"
	"github.com/smallbiznis/backoffice/internal/partner"
	"github.com/smallbiznis/backoffice/internal/registry"
	"github.com/smallbiznis/backoffice/internal/transaction"
	"github.com/smallbiznis/backoffice/pkg/db"
	"go.uber.org/fx"
)

// infrastructure is shared by every command: config, logging, the database
// and an up-to-date schema.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
	)
}

// domains wires the ledger services.
func domains() fx.Option {
	return fx.Options(
		debtlock.Module,
		ledger.Module,
		partner.Module,
		registry.Module,
		cost.Module,
		debt.Module,
		transaction.Module,
		ledgerview.Module,
	)
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
