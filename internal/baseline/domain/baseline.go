package domain

import (
	"sort"

	"github.com/shopspring/decimal"

	householddomain "github.com/fintraq/fintraq/internal/household/domain"
)

// LeakMargin is the haircut applied to the model's need estimate before it
// becomes a leakage threshold: threshold = DMB * (1 - LeakMargin). The
// user's own history can only raise the final figure, never lower it.
var LeakMargin = decimal.RequireFromString("0.15")

// GlobalMinimumFloor is the absolute monthly amount of variable spend the
// engine never labels reclaimable, regardless of how aggressive the
// thresholds come out.
var GlobalMinimumFloor = decimal.RequireFromString("15000.00")

var regionMultipliers = map[householddomain.RegionTier]decimal.Decimal{
	householddomain.RegionTier1: decimal.RequireFromString("1.20"),
	householddomain.RegionTier2: decimal.RequireFromString("1.00"),
	householddomain.RegionTier3: decimal.RequireFromString("0.85"),
}

var incomeMultipliers = map[householddomain.IncomeBand]decimal.Decimal{
	householddomain.IncomeBandLow:  decimal.RequireFromString("0.90"),
	householddomain.IncomeBandMid:  decimal.RequireFromString("1.00"),
	householddomain.IncomeBandHigh: decimal.RequireFromString("1.10"),
	householddomain.IncomeBandTop:  decimal.RequireFromString("1.15"),
}

// RegionMultiplier returns the cost-of-living multiplier for a region tier.
// Unknown tiers fall back to the neutral multiplier.
func RegionMultiplier(tier householddomain.RegionTier) decimal.Decimal {
	if m, ok := regionMultipliers[tier]; ok {
		return m
	}
	return decimal.RequireFromString("1.00")
}

// IncomeMultiplier returns the lifestyle multiplier for an income band.
func IncomeMultiplier(band householddomain.IncomeBand) decimal.Decimal {
	if m, ok := incomeMultipliers[band]; ok {
		return m
	}
	return decimal.RequireFromString("1.00")
}

// ThresholdInputs carries everything the per-category threshold needs.
type ThresholdInputs struct {
	BaseNeed         decimal.Decimal
	EFS              decimal.Decimal
	RegionTier       householddomain.RegionTier
	IncomeBand       householddomain.IncomeBand
	EfficiencyFactor decimal.Decimal
}

// ModelThreshold is the dynamic minimal baseline for one category:
// base_need * EFS * region * income * efficiency, rounded to cents.
func ModelThreshold(in ThresholdInputs) decimal.Decimal {
	return in.BaseNeed.
		Mul(in.EFS).
		Mul(RegionMultiplier(in.RegionTier)).
		Mul(IncomeMultiplier(in.IncomeBand)).
		Mul(in.EfficiencyFactor).
		Round(2)
}

// BlendWithHistory takes the model threshold and the user's own trailing
// spend history and returns the effective threshold. History wins when it is
// higher: a user who genuinely needs more than the model predicts should not
// be flagged for their normal spend.
func BlendWithHistory(modelThreshold decimal.Decimal, monthlySpend []decimal.Decimal) decimal.Decimal {
	if len(monthlySpend) == 0 {
		return modelThreshold
	}
	median := Median(monthlySpend)
	if median.GreaterThan(modelThreshold) {
		return median
	}
	return modelThreshold
}

// Median returns the middle value of the samples, averaging the two central
// values for even counts. Result is rounded to cents.
func Median(samples []decimal.Decimal) decimal.Decimal {
	if len(samples) == 0 {
		return decimal.Zero
	}
	sorted := make([]decimal.Decimal, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid].Round(2)
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2)).Round(2)
}
