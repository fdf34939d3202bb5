package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	insightdomain "github.com/fintraq/fintraq/internal/insight/domain"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	pipelinedomain "github.com/fintraq/fintraq/internal/pipeline/domain"
)

var (
	criticalUsageRatio = decimal.RequireFromString("0.95")
	warningUsageRatio  = decimal.RequireFromString("0.85")

	reclaimedFundsFloor = decimal.RequireFromString("500.00")
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	PeriodRepo  perioddomain.Repository
	DerivedRepo pipelinedomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	periodRepo  perioddomain.Repository
	derivedRepo pipelinedomain.Repository
}

func NewService(p Params) insightdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("insight.service"),
		periodRepo:  p.PeriodRepo,
		derivedRepo: p.DerivedRepo,
	}
}

func (s *Service) Insights(ctx context.Context, userID snowflake.ID, rawPeriod string) ([]insightdomain.Card, error) {
	period, err := perioddomain.ParsePeriod(strings.TrimSpace(rawPeriod))
	if err != nil {
		return nil, err
	}

	derived, err := s.derivedRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if derived == nil || !derived.EssentialTarget.IsPositive() {
		// no target to compare against yet
		return []insightdomain.Card{}, nil
	}

	profile, err := s.periodRepo.FindByUserPeriod(ctx, s.db, userID, period)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, perioddomain.ErrNotFound
	}

	cards := []insightdomain.Card{}

	available := profile.ProjectedReclaimableSalary.Sub(profile.TotalAutotransferred)
	if available.GreaterThan(reclaimedFundsFloor) {
		cards = append(cards, insightdomain.Card{
			Priority: 0,
			Severity: insightdomain.SeverityInfo,
			Title:    "Reclaimed funds available",
			Body:     fmt.Sprintf("You have %s ready to put to work. Review your allocation plan.", available.StringFixed(2)),
			Amount:   available,
		})
	}

	usage := profile.VariableSpendTotal.Div(derived.EssentialTarget).Round(2)
	switch {
	case usage.GreaterThanOrEqual(criticalUsageRatio):
		cards = append(cards, insightdomain.Card{
			Priority:   1,
			Severity:   insightdomain.SeverityCritical,
			Title:      "Essential budget nearly spent",
			Body:       fmt.Sprintf("Variable spend is at %s%% of your essential target for the month.", usage.Mul(decimal.NewFromInt(100)).StringFixed(0)),
			UsageRatio: usage,
		})
	case usage.GreaterThanOrEqual(warningUsageRatio):
		cards = append(cards, insightdomain.Card{
			Priority:   2,
			Severity:   insightdomain.SeverityWarning,
			Title:      "Essential budget running high",
			Body:       fmt.Sprintf("Variable spend has reached %s%% of your essential target.", usage.Mul(decimal.NewFromInt(100)).StringFixed(0)),
			UsageRatio: usage,
		})
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].Priority < cards[j].Priority })
	return cards, nil
}
