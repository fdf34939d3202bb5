package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	householddomain "github.com/fintraq/fintraq/internal/household/domain"
)

// ComputeInputs carries the upstream factors the baseline computation needs.
type ComputeInputs struct {
	EFS              decimal.Decimal
	RegionTier       householddomain.RegionTier
	IncomeBand       householddomain.IncomeBand
	EfficiencyFactor decimal.Decimal
	NetIncome        decimal.Decimal
	FixedTotal       decimal.Decimal
}

// CategoryBaseline is the per-category outcome: the model's threshold, the
// user's own history, and the effective figure (the larger of the two).
type CategoryBaseline struct {
	Category         string          `json:"category"`
	Tier             SpendTier       `json:"tier"`
	ModelThreshold   decimal.Decimal `json:"model_threshold"`
	HistoricalMedian decimal.Decimal `json:"historical_median"`
	Baseline         decimal.Decimal `json:"baseline"`
}

// BaselineSet is the full computation for one user and period.
type BaselineSet struct {
	Categories       []CategoryBaseline `json:"categories"`
	TotalMinimalNeed decimal.Decimal    `json:"total_minimal_need"`
	LeakageThreshold decimal.Decimal    `json:"leakage_threshold"`
	EssentialTarget  decimal.Decimal    `json:"essential_target"`
}

type Service interface {
	// Compute derives per-category minimal baselines for the period,
	// reconciling model thresholds against the user's trailing history.
	Compute(ctx context.Context, userID snowflake.ID, period time.Time, in ComputeInputs) (*BaselineSet, error)
}
