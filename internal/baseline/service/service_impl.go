package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	baselinedomain "github.com/fintraq/fintraq/internal/baseline/domain"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	transactiondomain "github.com/fintraq/fintraq/internal/transaction/domain"
)

// historyMonths is the trailing window for the historical median.
const historyMonths = 4

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Repo            baselinedomain.Repository
	TransactionRepo transactiondomain.Repository
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	repo            baselinedomain.Repository
	transactionRepo transactiondomain.Repository
}

func NewService(p Params) baselinedomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("baseline.service"),
		repo:            p.Repo,
		transactionRepo: p.TransactionRepo,
	}
}

func (s *Service) Compute(ctx context.Context, userID snowflake.ID, period time.Time, in baselinedomain.ComputeInputs) (*baselinedomain.BaselineSet, error) {
	categories, err := s.repo.ListCategories(ctx, s.db)
	if err != nil {
		return nil, err
	}

	history, err := s.trailingHistory(ctx, userID, period)
	if err != nil {
		return nil, err
	}

	// Income fully consumed by fixed commitments leaves no variable pool;
	// the model produces zero baselines but history still floors them.
	poolCollapsed := !in.NetIncome.Sub(in.FixedTotal).IsPositive()

	oneMinusMargin := decimal.NewFromInt(1).Sub(baselinedomain.LeakMargin)

	set := &baselinedomain.BaselineSet{
		TotalMinimalNeed: decimal.Zero,
		EssentialTarget:  decimal.Zero,
	}
	for _, category := range categories {
		if category.Tier == baselinedomain.TierFixedEssential {
			// covered by the period's fixed commitment total
			continue
		}

		var dmb decimal.Decimal
		if !poolCollapsed && hasModelBaseline(category.Tier) {
			dmb = baselinedomain.ModelThreshold(baselinedomain.ThresholdInputs{
				BaseNeed:         category.BaseNeed,
				EFS:              in.EFS,
				RegionTier:       in.RegionTier,
				IncomeBand:       in.IncomeBand,
				EfficiencyFactor: in.EfficiencyFactor,
			})
		} else {
			dmb = decimal.Zero
		}

		threshold := dmb.Mul(oneMinusMargin).Round(2)
		median := baselinedomain.Median(history[category.Category])
		baseline := threshold
		if hasModelBaseline(category.Tier) && median.GreaterThan(threshold) {
			baseline = median
		}

		set.Categories = append(set.Categories, baselinedomain.CategoryBaseline{
			Category:         category.Category,
			Tier:             category.Tier,
			ModelThreshold:   threshold,
			HistoricalMedian: median,
			Baseline:         baseline,
		})

		set.TotalMinimalNeed = set.TotalMinimalNeed.Add(dmb)
		if category.Tier == baselinedomain.TierVariableEssential {
			set.EssentialTarget = set.EssentialTarget.Add(baseline)
		}
	}

	set.TotalMinimalNeed = set.TotalMinimalNeed.Round(2)
	set.EssentialTarget = set.EssentialTarget.Round(2)
	set.LeakageThreshold = set.TotalMinimalNeed.Mul(oneMinusMargin).Round(2)

	return set, nil
}

// hasModelBaseline reports whether a tier gets a modelled minimal need.
// Pure discretionary and tax-advantaged spend have no defensible minimum.
func hasModelBaseline(tier baselinedomain.SpendTier) bool {
	return tier == baselinedomain.TierVariableEssential || tier == baselinedomain.TierScaledDiscretionary
}

// trailingHistory collects per-category monthly debit sums over the months
// preceding the period. Months without spend in a category contribute no
// sample for it.
func (s *Service) trailingHistory(ctx context.Context, userID snowflake.ID, period time.Time) (map[string][]decimal.Decimal, error) {
	start := perioddomain.Normalize(period)
	history := make(map[string][]decimal.Decimal)

	for back := 1; back <= historyMonths; back++ {
		from := start.AddDate(0, -back, 0)
		to := start.AddDate(0, -back+1, 0)

		totals, err := s.transactionRepo.CategoryTotals(ctx, s.db, userID, from, to)
		if err != nil {
			return nil, err
		}
		for _, total := range totals {
			history[total.Category] = append(history[total.Category], total.Total)
		}
	}
	return history, nil
}
