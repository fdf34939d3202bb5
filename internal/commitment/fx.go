package commitment

import (
	"github.com/fintraq/fintraq/internal/commitment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commitment.service",
	fx.Provide(service.NewService),
)
