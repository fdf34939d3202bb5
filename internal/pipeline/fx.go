package pipeline

import (
	"github.com/fintraq/fintraq/internal/pipeline/repository"
	"github.com/fintraq/fintraq/internal/pipeline/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pipeline.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
