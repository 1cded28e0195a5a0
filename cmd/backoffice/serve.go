package main

import (
	"github.com/smallbiznis/backoffice/internal/scheduler"
	"github.com/smallbiznis/backoffice/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the ledger audit",
	Run: func(cmd *cobra.Command, args []string) {
		fx.New(
			infrastructure(),
			domains(),
			scheduler.Module,
			server.Module,
		).Run()
	},
}
