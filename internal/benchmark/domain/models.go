package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	householddomain "github.com/fintraq/fintraq/internal/household/domain"
)

// CohortMember is another user's latest period figures joined to their
// household composition. Raw material for the efficiency benchmark.
type CohortMember struct {
	UserID               snowflake.ID
	NumAdults            int
	DependentsUnder6     int
	Dependents6To17      int
	DependentsOver18     int
	NetIncome            decimal.Decimal
	FixedCommitmentTotal decimal.Decimal
	VariableSpendTotal   decimal.Decimal
}

// EfficiencyResult is the benchmark outcome. Fallback is set when the cohort
// was too small to be meaningful and the conservative default was used.
type EfficiencyResult struct {
	Factor     decimal.Decimal `json:"factor"`
	Fallback   bool            `json:"fallback"`
	CohortSize int             `json:"cohort_size"`
}

// CohortQuery narrows candidates before the in-process similarity filter.
type CohortQuery struct {
	ExcludeUserID snowflake.ID
	RegionTier    householddomain.RegionTier
}

type Repository interface {
	// LatestCohortCandidates returns each other user's most recent period
	// profile joined to their household composition, restricted to one
	// region tier.
	LatestCohortCandidates(ctx context.Context, db *gorm.DB, query CohortQuery) ([]CohortMember, error)
}

type Service interface {
	// ComputeEfficiency benchmarks a user against similar households and
	// returns the efficiency factor the baseline engine should apply.
	ComputeEfficiency(ctx context.Context, userID snowflake.ID, efs decimal.Decimal, fixedTotal decimal.Decimal, regionTier householddomain.RegionTier) (*EfficiencyResult, error)
}
