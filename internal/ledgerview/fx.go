package ledgerview

import (
	"github.com/smallbiznis/backoffice/internal/ledgerview/repository"
	"github.com/smallbiznis/backoffice/internal/ledgerview/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledgerview.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
