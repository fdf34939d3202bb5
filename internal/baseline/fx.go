package baseline

import (
	"github.com/fintraq/fintraq/internal/baseline/repository"
	"github.com/fintraq/fintraq/internal/baseline/service"
	"go.uber.org/fx"
)

var Module = fx.Module("baseline.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
