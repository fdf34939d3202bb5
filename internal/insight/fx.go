package insight

import (
	"github.com/fintraq/fintraq/internal/insight/service"
	"go.uber.org/fx"
)

var Module = fx.Module("insight.service",
	fx.Provide(service.NewService),
)
