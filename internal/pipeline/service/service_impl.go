package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	baselinedomain "github.com/fintraq/fintraq/internal/baseline/domain"
	benchmarkdomain "github.com/fintraq/fintraq/internal/benchmark/domain"
	"github.com/fintraq/fintraq/internal/clock"
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	leakagedomain "github.com/fintraq/fintraq/internal/leakage/domain"
	"github.com/fintraq/fintraq/internal/observability/metrics"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	pipelinedomain "github.com/fintraq/fintraq/internal/pipeline/domain"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Metrics       *metrics.Metrics
	HouseholdRepo householddomain.Repository
	PeriodRepo    perioddomain.Repository
	DerivedRepo   pipelinedomain.Repository
	Benchmark     benchmarkdomain.Service
	Baseline      baselinedomain.Service
	Leakage       leakagedomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	metrics       *metrics.Metrics
	householdRepo householddomain.Repository
	periodRepo    perioddomain.Repository
	derivedRepo   pipelinedomain.Repository
	benchmark     benchmarkdomain.Service
	baseline      baselinedomain.Service
	leakage       leakagedomain.Service
}

func NewService(p Params) pipelinedomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("pipeline.service"),
		clock:         p.Clock,
		metrics:       p.Metrics,
		householdRepo: p.HouseholdRepo,
		periodRepo:    p.PeriodRepo,
		derivedRepo:   p.DerivedRepo,
		benchmark:     p.Benchmark,
		baseline:      p.Baseline,
		leakage:       p.Leakage,
	}
}

func (s *Service) Recompute(ctx context.Context, userID snowflake.ID, rawPeriod string) (*pipelinedomain.RecomputeResult, error) {
	started := s.clock.Now()

	result, err := s.recompute(ctx, userID, rawPeriod)
	elapsed := s.clock.Now().Sub(started)
	s.metrics.PipelineDuration.Observe(elapsed.Seconds())
	if err != nil {
		s.metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.PipelineRuns.WithLabelValues("success").Inc()

	result.Duration = elapsed.String()
	return result, nil
}

func (s *Service) recompute(ctx context.Context, userID snowflake.ID, rawPeriod string) (*pipelinedomain.RecomputeResult, error) {
	period, err := perioddomain.ParsePeriod(strings.TrimSpace(rawPeriod))
	if err != nil {
		return nil, err
	}

	household, err := s.householdRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if household == nil {
		return nil, householddomain.ErrNotFound
	}

	efs, err := householddomain.EFSFor(household)
	if err != nil {
		return nil, err
	}

	profile, err := s.periodRepo.FindByUserPeriod(ctx, s.db, userID, period)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, perioddomain.ErrNotFound
	}

	efficiency, err := s.benchmark.ComputeEfficiency(ctx, userID, efs, profile.FixedCommitmentTotal, household.RegionTier)
	if err != nil {
		return nil, err
	}
	if efficiency.Fallback {
		s.log.Debug("efficiency benchmark fell back",
			zap.String("user_id", userID.String()),
			zap.Int("cohort_size", efficiency.CohortSize),
		)
	}

	baselines, err := s.baseline.Compute(ctx, userID, period, baselinedomain.ComputeInputs{
		EFS:              efs,
		RegionTier:       household.RegionTier,
		IncomeBand:       household.IncomeBand,
		EfficiencyFactor: efficiency.Factor,
		NetIncome:        profile.NetIncome,
		FixedTotal:       profile.FixedCommitmentTotal,
	})
	if err != nil {
		return nil, err
	}

	derived := &pipelinedomain.DerivedProfile{
		UserID:             userID,
		EFS:                efs,
		EfficiencyFactor:   efficiency.Factor,
		EfficiencyFallback: efficiency.Fallback,
		EssentialTarget:    baselines.EssentialTarget,
		ComputedAt:         s.clock.Now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.derivedRepo.Upsert(ctx, tx, derived)
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.leakage.Compute(ctx, userID, rawPeriod); err != nil {
		return nil, err
	}

	return &pipelinedomain.RecomputeResult{
		Profile: toResponse(derived),
		Period:  perioddomain.FormatPeriod(period),
	}, nil
}

func (s *Service) DerivedProfile(ctx context.Context, userID snowflake.ID) (*pipelinedomain.Response, error) {
	derived, err := s.derivedRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if derived == nil {
		return nil, pipelinedomain.ErrDerivedProfileMissing
	}
	response := toResponse(derived)
	return &response, nil
}

func toResponse(profile *pipelinedomain.DerivedProfile) pipelinedomain.Response {
	return pipelinedomain.Response{
		UserID:             profile.UserID.String(),
		EFS:                profile.EFS,
		EfficiencyFactor:   profile.EfficiencyFactor,
		EfficiencyFallback: profile.EfficiencyFallback,
		EssentialTarget:    profile.EssentialTarget,
		ComputedAt:         profile.ComputedAt,
	}
}
