package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	baselinedomain "github.com/fintraq/fintraq/internal/baseline/domain"
	commitmentdomain "github.com/fintraq/fintraq/internal/commitment/domain"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	transactiondomain "github.com/fintraq/fintraq/internal/transaction/domain"
)

// lookbackMonths is the trailing window the projection reads.
const lookbackMonths = 4

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	TransactionRepo transactiondomain.Repository
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	transactionRepo transactiondomain.Repository
}

func NewService(p Params) commitmentdomain.Projector {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("commitment.service"),
		transactionRepo: p.TransactionRepo,
	}
}

// Project estimates next period's fixed commitments: per fixed-essential
// category, collect the monthly debit sums over the trailing window, keep
// categories that recur in at least half the window, and project each kept
// category at its median monthly amount.
func (s *Service) Project(ctx context.Context, userID snowflake.ID, period time.Time) (*commitmentdomain.Projection, error) {
	start := perioddomain.Normalize(period)
	monthly := make(map[string][]decimal.Decimal)

	for back := 1; back <= lookbackMonths; back++ {
		from := start.AddDate(0, -back, 0)
		to := start.AddDate(0, -back+1, 0)

		totals, err := s.transactionRepo.CategoryTotals(ctx, s.db, userID, from, to)
		if err != nil {
			return nil, err
		}
		for _, total := range totals {
			if total.Tier != baselinedomain.TierFixedEssential {
				continue
			}
			monthly[total.Category] = append(monthly[total.Category], total.Total)
		}
	}

	minMonths := lookbackMonths / 2
	projection := &commitmentdomain.Projection{Total: decimal.Zero}
	for category, sums := range monthly {
		if len(sums) < minMonths {
			continue
		}
		projection.Categories = append(projection.Categories, commitmentdomain.CategoryProjection{
			Category: category,
			Monthly:  baselinedomain.Median(sums),
			Months:   len(sums),
		})
	}

	sort.Slice(projection.Categories, func(i, j int) bool {
		return projection.Categories[i].Category < projection.Categories[j].Category
	})
	for _, cat := range projection.Categories {
		projection.Total = projection.Total.Add(cat.Monthly)
	}
	projection.Total = projection.Total.Round(2)

	return projection, nil
}
