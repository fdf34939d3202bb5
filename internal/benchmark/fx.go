package benchmark

import (
	"github.com/fintraq/fintraq/internal/benchmark/repository"
	"github.com/fintraq/fintraq/internal/benchmark/service"
	"go.uber.org/fx"
)

var Module = fx.Module("benchmark.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
