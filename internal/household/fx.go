package household

import (
	"github.com/fintraq/fintraq/internal/household/repository"
	"github.com/fintraq/fintraq/internal/household/service"
	"go.uber.org/fx"
)

var Module = fx.Module("household.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
