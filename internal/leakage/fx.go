package leakage

import (
	"github.com/fintraq/fintraq/internal/leakage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("leakage.service",
	fx.Provide(service.NewService),
)
