package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// SpendTier classifies a spending category by how negotiable it is. The
// leakage engine treats each tier differently when deciding what counts as
// reclaimable.
type SpendTier string

const (
	TierFixedEssential      SpendTier = "fixed_essential"
	TierVariableEssential   SpendTier = "variable_essential"
	TierScaledDiscretionary SpendTier = "scaled_discretionary"
	TierPureDiscretionary   SpendTier = "pure_discretionary"
	TierTaxOptimization     SpendTier = "tax_optimization"
)

var ErrInvalidTier = errors.New("invalid_spend_tier")

func ParseTier(value string) (SpendTier, error) {
	switch SpendTier(value) {
	case TierFixedEssential, TierVariableEssential, TierScaledDiscretionary,
		TierPureDiscretionary, TierTaxOptimization:
		return SpendTier(value), nil
	}
	return "", ErrInvalidTier
}

// BaselineCategory is a reference row: a spending category, its tier, and the
// base monthly need for a single-adult household before any multiplier is
// applied.
type BaselineCategory struct {
	Category string          `gorm:"primaryKey"`
	Tier     SpendTier       `gorm:"not null"`
	BaseNeed decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
}

// TableName sets the database table name.
func (BaselineCategory) TableName() string { return "baseline_categories" }

// DefaultCategories returns the seeded reference set. Base needs are
// single-adult monthly figures; household scaling happens at computation
// time.
func DefaultCategories() []BaselineCategory {
	return []BaselineCategory{
		{Category: "groceries", Tier: TierVariableEssential, BaseNeed: decimal.RequireFromString("2500.00")},
		{Category: "utilities", Tier: TierVariableEssential, BaseNeed: decimal.RequireFromString("1500.00")},
		{Category: "healthcare", Tier: TierVariableEssential, BaseNeed: decimal.RequireFromString("800.00")},
		{Category: "transport", Tier: TierVariableEssential, BaseNeed: decimal.RequireFromString("1200.00")},
		{Category: "household_supplies", Tier: TierVariableEssential, BaseNeed: decimal.RequireFromString("600.00")},
		{Category: "rent", Tier: TierFixedEssential, BaseNeed: decimal.Zero},
		{Category: "insurance", Tier: TierFixedEssential, BaseNeed: decimal.Zero},
		{Category: "loan_emi", Tier: TierFixedEssential, BaseNeed: decimal.Zero},
		{Category: "dining_out", Tier: TierScaledDiscretionary, BaseNeed: decimal.RequireFromString("1000.00")},
		{Category: "subscriptions", Tier: TierScaledDiscretionary, BaseNeed: decimal.RequireFromString("400.00")},
		{Category: "personal_care", Tier: TierScaledDiscretionary, BaseNeed: decimal.RequireFromString("500.00")},
		{Category: "entertainment", Tier: TierPureDiscretionary, BaseNeed: decimal.Zero},
		{Category: "shopping", Tier: TierPureDiscretionary, BaseNeed: decimal.Zero},
		{Category: "travel", Tier: TierPureDiscretionary, BaseNeed: decimal.Zero},
		{Category: "tax_saving_investment", Tier: TierTaxOptimization, BaseNeed: decimal.Zero},
	}
}
