package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fintraq/fintraq/internal/allocation"
	allocationdomain "github.com/fintraq/fintraq/internal/allocation/domain"
	"github.com/fintraq/fintraq/internal/baseline"
	"github.com/fintraq/fintraq/internal/benchmark"
	"github.com/fintraq/fintraq/internal/commitment"
	"github.com/fintraq/fintraq/internal/config"
	"github.com/fintraq/fintraq/internal/household"
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	"github.com/fintraq/fintraq/internal/insight"
	insightdomain "github.com/fintraq/fintraq/internal/insight/domain"
	"github.com/fintraq/fintraq/internal/leakage"
	leakagedomain "github.com/fintraq/fintraq/internal/leakage/domain"
	"github.com/fintraq/fintraq/internal/observability"
	obslogger "github.com/fintraq/fintraq/internal/observability/logger"
	obsmetrics "github.com/fintraq/fintraq/internal/observability/metrics"
	obstracing "github.com/fintraq/fintraq/internal/observability/tracing"
	"github.com/fintraq/fintraq/internal/period"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	"github.com/fintraq/fintraq/internal/pipeline"
	pipelinedomain "github.com/fintraq/fintraq/internal/pipeline/domain"
	"github.com/fintraq/fintraq/internal/transaction"
	transactiondomain "github.com/fintraq/fintraq/internal/transaction/domain"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	household.Module,
	benchmark.Module,
	baseline.Module,
	leakage.Module,
	allocation.Module,
	period.Module,
	transaction.Module,
	pipeline.Module,
	commitment.Module,
	insight.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Log:   log.Named("http"),
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	householdSvc   householddomain.Service
	periodSvc      perioddomain.Service
	transactionSvc transactiondomain.Service
	pipelineSvc    pipelinedomain.Service
	leakageSvc     leakagedomain.Service
	allocationSvc  allocationdomain.Service
	insightSvc     insightdomain.Service
}

type ServerParams struct {
	fx.In

	Engine         *gin.Engine
	Config         config.Config
	DB             *gorm.DB
	HouseholdSvc   householddomain.Service
	PeriodSvc      perioddomain.Service
	TransactionSvc transactiondomain.Service
	PipelineSvc    pipelinedomain.Service
	LeakageSvc     leakagedomain.Service
	AllocationSvc  allocationdomain.Service
	InsightSvc     insightdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Engine,
		cfg:            p.Config,
		db:             p.DB,
		householdSvc:   p.HouseholdSvc,
		periodSvc:      p.PeriodSvc,
		transactionSvc: p.TransactionSvc,
		pipelineSvc:    p.PipelineSvc,
		leakageSvc:     p.LeakageSvc,
		allocationSvc:  p.AllocationSvc,
		insightSvc:     p.InsightSvc,
	}

	s.registerAPIRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(UserAuthMiddleware())

	v1.PUT("/household", s.UpsertHousehold)
	v1.GET("/household", s.GetHousehold)

	v1.POST("/periods", s.OpenPeriod)
	v1.GET("/periods/:period", s.GetPeriod)

	v1.POST("/transactions", s.IngestTransactions)

	v1.POST("/pipeline/recompute", s.RecomputePipeline)
	v1.GET("/profile/derived", s.GetDerivedProfile)

	v1.GET("/leakage", s.GetLeakage)
	v1.GET("/insights", s.GetInsights)

	v1.POST("/rules", s.CreateRule)
	v1.GET("/rules", s.ListRules)
	v1.PATCH("/rules/:id", s.UpdateRule)
	v1.POST("/rules/:id/deactivate", s.DeactivateRule)

	v1.GET("/allocation/suggestion", s.GetSuggestion)
	v1.POST("/allocation/consent", s.ConsentAllocation)
}
