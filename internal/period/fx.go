package period

import (
	"github.com/fintraq/fintraq/internal/period/repository"
	"github.com/fintraq/fintraq/internal/period/service"
	"go.uber.org/fx"
)

var Module = fx.Module("period.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
