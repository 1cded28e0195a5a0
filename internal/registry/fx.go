package registry

import (
	"github.com/smallbiznis/backoffice/internal/registry/repository"
	"github.com/smallbiznis/backoffice/internal/registry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("registry.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
