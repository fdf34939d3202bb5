package service

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	benchmarkdomain "github.com/fintraq/fintraq/internal/benchmark/domain"
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	"github.com/fintraq/fintraq/internal/observability/metrics"
)

// minCohortSize is the smallest cohort the benchmark trusts. Anything
// smaller falls back to the conservative default factor.
const minCohortSize = 5

// lowestShare is the fraction of the cohort the factor is learned from:
// the most efficient fifth.
const lowestShare = 5

var (
	fallbackFactor = decimal.RequireFromString("0.85")

	efsBandRatio   = decimal.RequireFromString("0.10")
	fixedBandRatio = decimal.RequireFromString("0.05")
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    benchmarkdomain.Repository
	Metrics *metrics.Metrics
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    benchmarkdomain.Repository
	metrics *metrics.Metrics
}

func NewService(p Params) benchmarkdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("benchmark.service"),
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) ComputeEfficiency(ctx context.Context, userID snowflake.ID, efs decimal.Decimal, fixedTotal decimal.Decimal, regionTier householddomain.RegionTier) (*benchmarkdomain.EfficiencyResult, error) {
	candidates, err := s.repo.LatestCohortCandidates(ctx, s.db, benchmarkdomain.CohortQuery{
		ExcludeUserID: userID,
		RegionTier:    regionTier,
	})
	if err != nil {
		return nil, err
	}

	cohort := filterCohort(candidates, efs, fixedTotal)
	if len(cohort) < minCohortSize {
		s.metrics.BenchmarkFallbacks.Inc()
		s.log.Debug("benchmark cohort too small, using fallback factor",
			zap.String("user_id", userID.String()),
			zap.Int("cohort_size", len(cohort)),
		)
		return &benchmarkdomain.EfficiencyResult{
			Factor:     fallbackFactor,
			Fallback:   true,
			CohortSize: len(cohort),
		}, nil
	}

	factor := efficiencyFromCohort(cohort)
	if !factor.IsPositive() {
		// every matched household had no variable pool; nothing to learn
		s.metrics.BenchmarkFallbacks.Inc()
		return &benchmarkdomain.EfficiencyResult{
			Factor:     fallbackFactor,
			Fallback:   true,
			CohortSize: len(cohort),
		}, nil
	}

	return &benchmarkdomain.EfficiencyResult{
		Factor:     factor,
		Fallback:   false,
		CohortSize: len(cohort),
	}, nil
}

// filterCohort keeps candidates whose EFS is within ±10% and fixed
// commitments within ±5% of the subject's.
func filterCohort(candidates []benchmarkdomain.CohortMember, efs, fixedTotal decimal.Decimal) []benchmarkdomain.CohortMember {
	var cohort []benchmarkdomain.CohortMember
	for _, member := range candidates {
		memberEFS, err := householddomain.ComputeEFS(
			member.NumAdults,
			member.DependentsUnder6,
			member.Dependents6To17,
			member.DependentsOver18,
		)
		if err != nil {
			continue
		}
		if !withinBand(memberEFS, efs, efsBandRatio) {
			continue
		}
		if !withinBand(member.FixedCommitmentTotal, fixedTotal, fixedBandRatio) {
			continue
		}
		cohort = append(cohort, member)
	}
	return cohort
}

func withinBand(value, center, ratio decimal.Decimal) bool {
	band := center.Mul(ratio)
	diff := value.Sub(center).Abs()
	return diff.LessThanOrEqual(band)
}

// efficiencyFromCohort computes each member's variable spend as a share of
// their variable pool, then averages the lowest fifth. Members with no
// variable pool are skipped.
func efficiencyFromCohort(cohort []benchmarkdomain.CohortMember) decimal.Decimal {
	var ratios []decimal.Decimal
	for _, member := range cohort {
		pool := member.NetIncome.Sub(member.FixedCommitmentTotal)
		if !pool.IsPositive() {
			continue
		}
		ratios = append(ratios, member.VariableSpendTotal.Div(pool))
	}
	if len(ratios) == 0 {
		return decimal.Zero
	}

	sort.Slice(ratios, func(i, j int) bool { return ratios[i].LessThan(ratios[j]) })

	take := len(ratios) / lowestShare
	if take < 1 {
		take = 1
	}

	sum := decimal.Zero
	for _, ratio := range ratios[:take] {
		sum = sum.Add(ratio)
	}
	return sum.Div(decimal.NewFromInt(int64(take))).Round(2)
}
