package transaction

import (
	"github.com/fintraq/fintraq/internal/transaction/repository"
	"github.com/fintraq/fintraq/internal/transaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transaction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
