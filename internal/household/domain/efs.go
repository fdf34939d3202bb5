package domain

import "github.com/shopspring/decimal"

// Equivalence-scale weights for the EFS factor. The first adult counts as
// 1.00; every further member adds a fraction of an adult's consumption.
// Older dependents weigh more than infants, and adult dependents weigh the
// same as a second adult.
var (
	weightExtraAdult = decimal.RequireFromString("0.50")
	weightUnder6     = decimal.RequireFromString("0.20")
	weight6To17      = decimal.RequireFromString("0.30")
	weightOver18     = decimal.RequireFromString("0.50")

	efsBase = decimal.RequireFromString("1.00")
)

// ComputeEFS converts household composition counts into the Equivalent
// Family Size factor, rounded half-up to two decimals. Always >= 1.00 for
// valid inputs.
func ComputeEFS(adults, under6, from6To17, over18 int) (decimal.Decimal, error) {
	if adults < 1 || under6 < 0 || from6To17 < 0 || over18 < 0 {
		return decimal.Zero, ErrInvalidHouseholdCounts
	}

	efs := efsBase.
		Add(weightExtraAdult.Mul(decimal.NewFromInt(int64(adults - 1)))).
		Add(weightUnder6.Mul(decimal.NewFromInt(int64(under6)))).
		Add(weight6To17.Mul(decimal.NewFromInt(int64(from6To17)))).
		Add(weightOver18.Mul(decimal.NewFromInt(int64(over18))))

	return efs.Round(2), nil
}

// EFSFor computes the EFS factor of a stored profile.
func EFSFor(profile *HouseholdProfile) (decimal.Decimal, error) {
	if profile == nil {
		return decimal.Zero, ErrNotFound
	}
	return ComputeEFS(profile.NumAdults, profile.DependentsUnder6, profile.Dependents6To17, profile.DependentsOver18)
}
