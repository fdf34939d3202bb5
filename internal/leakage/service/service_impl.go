package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	baselinedomain "github.com/fintraq/fintraq/internal/baseline/domain"
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	leakagedomain "github.com/fintraq/fintraq/internal/leakage/domain"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	pipelinedomain "github.com/fintraq/fintraq/internal/pipeline/domain"
	transactiondomain "github.com/fintraq/fintraq/internal/transaction/domain"
)

var oneHundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	HouseholdRepo   householddomain.Repository
	PeriodRepo      perioddomain.Repository
	DerivedRepo     pipelinedomain.Repository
	Baseline        baselinedomain.Service
	TransactionRepo transactiondomain.Repository
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	householdRepo   householddomain.Repository
	periodRepo      perioddomain.Repository
	derivedRepo     pipelinedomain.Repository
	baseline        baselinedomain.Service
	transactionRepo transactiondomain.Repository
}

func NewService(p Params) leakagedomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("leakage.service"),
		householdRepo:   p.HouseholdRepo,
		periodRepo:      p.PeriodRepo,
		derivedRepo:     p.DerivedRepo,
		baseline:        p.Baseline,
		transactionRepo: p.TransactionRepo,
	}
}

func (s *Service) Compute(ctx context.Context, userID snowflake.ID, rawPeriod string) (*leakagedomain.Report, error) {
	period, err := perioddomain.ParsePeriod(strings.TrimSpace(rawPeriod))
	if err != nil {
		return nil, err
	}

	derived, err := s.derivedRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if derived == nil {
		// leakage never guesses at EFS or efficiency
		return nil, pipelinedomain.ErrDerivedProfileMissing
	}

	household, err := s.householdRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if household == nil {
		return nil, householddomain.ErrNotFound
	}

	profile, err := s.periodRepo.FindByUserPeriod(ctx, s.db, userID, period)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, perioddomain.ErrNotFound
	}

	baselines, err := s.baseline.Compute(ctx, userID, period, baselinedomain.ComputeInputs{
		EFS:              derived.EFS,
		RegionTier:       household.RegionTier,
		IncomeBand:       household.IncomeBand,
		EfficiencyFactor: derived.EfficiencyFactor,
		NetIncome:        profile.NetIncome,
		FixedTotal:       profile.FixedCommitmentTotal,
	})
	if err != nil {
		return nil, err
	}

	spend, err := s.transactionRepo.CategoryTotals(ctx, s.db, userID, period, period.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}

	report := buildReport(userID, period, baselines, spend, profile)

	update := perioddomain.ComputationUpdate{
		VariableSpendTotal:         report.VariableSpendTotal,
		TotalLeakage:               report.TotalLeakage,
		ProjectedReclaimableSalary: report.ProjectedReclaimableSalary,
	}
	err = s.periodRepo.ApplyComputation(ctx, s.db, userID, period, profile.LockVersion, update)
	if errors.Is(err, perioddomain.ErrVersionConflict) {
		// one retry against the fresh version
		fresh, rerr := s.periodRepo.FindByUserPeriod(ctx, s.db, userID, period)
		if rerr != nil {
			return nil, rerr
		}
		if fresh == nil {
			return nil, perioddomain.ErrNotFound
		}
		err = s.periodRepo.ApplyComputation(ctx, s.db, userID, period, fresh.LockVersion, update)
	}
	if err != nil {
		return nil, err
	}

	s.log.Debug("computed leakage",
		zap.String("user_id", userID.String()),
		zap.String("period", report.Period),
		zap.String("total_leakage", report.TotalLeakage.String()),
		zap.String("reclaimable", report.ProjectedReclaimableSalary.String()),
	)
	return report, nil
}

func buildReport(userID snowflake.ID, period time.Time, baselines *baselinedomain.BaselineSet, spend []transactiondomain.CategoryTotal, profile *perioddomain.PeriodProfile) *leakagedomain.Report {
	spendByCategory := make(map[string]transactiondomain.CategoryTotal, len(spend))
	for _, total := range spend {
		spendByCategory[total.Category] = total
	}

	report := &leakagedomain.Report{
		UserID:             userID.String(),
		Period:             perioddomain.FormatPeriod(period),
		VariableSpendTotal: decimal.Zero,
		TotalLeakage:       decimal.Zero,
	}

	seen := make(map[string]bool)
	for _, baseline := range baselines.Categories {
		seen[baseline.Category] = true
		categorySpend := decimal.Zero
		if total, ok := spendByCategory[baseline.Category]; ok {
			categorySpend = total.Total
		}
		appendBucket(report, baseline.Category, baseline.Tier, categorySpend, baseline.Baseline)
	}
	for _, total := range spend {
		if seen[total.Category] {
			continue
		}
		// spend in a category the reference table does not model
		appendBucket(report, total.Category, total.Tier, total.Total, decimal.Zero)
	}

	sort.Slice(report.Buckets, func(i, j int) bool {
		return report.Buckets[i].Leak.GreaterThan(report.Buckets[j].Leak)
	})

	// unused tax-advantaged capacity counts as leakage to taxes
	if profile.TaxHeadroomRemaining.IsPositive() {
		report.Buckets = append(report.Buckets, leakagedomain.Bucket{
			Category:    leakagedomain.TaxHeadroomCategory,
			Tier:        baselinedomain.TierTaxOptimization,
			Spend:       decimal.Zero,
			Baseline:    decimal.Zero,
			Leak:        profile.TaxHeadroomRemaining,
			LeakPercent: decimal.Zero,
		})
		report.TotalLeakage = report.TotalLeakage.Add(profile.TaxHeadroomRemaining)
	}

	report.VariableSpendTotal = report.VariableSpendTotal.Round(2)
	report.TotalLeakage = report.TotalLeakage.Round(2)
	report.ProjectedReclaimableSalary = clampReclaimable(report.TotalLeakage, profile.NetIncome, profile.FixedCommitmentTotal)
	return report
}

func appendBucket(report *leakagedomain.Report, category string, tier baselinedomain.SpendTier, spend, baseline decimal.Decimal) {
	switch tier {
	case baselinedomain.TierFixedEssential, baselinedomain.TierTaxOptimization:
		return
	}

	var leak decimal.Decimal
	switch tier {
	case baselinedomain.TierPureDiscretionary:
		leak = spend
	default:
		leak = spend.Sub(baseline)
		if leak.IsNegative() {
			leak = decimal.Zero
		}
	}

	leakPercent := decimal.Zero
	if baseline.IsPositive() {
		leakPercent = leak.Div(baseline).Mul(oneHundred).Round(2)
	}

	report.Buckets = append(report.Buckets, leakagedomain.Bucket{
		Category:    category,
		Tier:        tier,
		Spend:       spend,
		Baseline:    baseline,
		Leak:        leak.Round(2),
		LeakPercent: leakPercent,
	})
	report.VariableSpendTotal = report.VariableSpendTotal.Add(spend)
	report.TotalLeakage = report.TotalLeakage.Add(leak)
}

// clampReclaimable bounds the reclaimable projection: never negative and
// never deep enough to cut into the protected minimum of variable spend.
func clampReclaimable(totalLeakage, netIncome, fixedTotal decimal.Decimal) decimal.Decimal {
	upper := netIncome.Sub(fixedTotal).Sub(baselinedomain.GlobalMinimumFloor)
	if upper.IsNegative() {
		upper = decimal.Zero
	}
	if totalLeakage.GreaterThan(upper) {
		return upper.Round(2)
	}
	if totalLeakage.IsNegative() {
		return decimal.Zero
	}
	return totalLeakage.Round(2)
}
