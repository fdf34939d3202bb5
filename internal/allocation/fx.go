package allocation

import (
	"github.com/fintraq/fintraq/internal/allocation/repository"
	"github.com/fintraq/fintraq/internal/allocation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("allocation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
