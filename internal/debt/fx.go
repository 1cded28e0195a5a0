package debt

import (
	"github.com/smallbiznis/backoffice/internal/debt/repository"
	"github.com/smallbiznis/backoffice/internal/debt/service"
	"go.uber.org/fx"
)

var Module = fx.Module("debt.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewRemover),
	fx.Provide(service.New),
)
