package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	baselinedomain "github.com/fintraq/fintraq/internal/baseline/domain"
)

// TaxHeadroomCategory is the synthetic bucket for unused tax-advantaged
// capacity. It is standing annual capacity, not monthly spend.
const TaxHeadroomCategory = "tax_headroom"

// Bucket is one category's leakage position for the period.
type Bucket struct {
	Category    string                   `json:"category"`
	Tier        baselinedomain.SpendTier `json:"tier"`
	Spend       decimal.Decimal          `json:"spend"`
	Baseline    decimal.Decimal          `json:"baseline"`
	Leak        decimal.Decimal          `json:"leak"`
	LeakPercent decimal.Decimal          `json:"leak_percent"`
}

// Report is the full leakage computation for one user and period. Buckets
// are ephemeral; only the totals are persisted on the period profile.
type Report struct {
	UserID                     string          `json:"user_id"`
	Period                     string          `json:"period"`
	Buckets                    []Bucket        `json:"buckets"`
	VariableSpendTotal         decimal.Decimal `json:"variable_spend_total"`
	TotalLeakage               decimal.Decimal `json:"total_leakage"`
	ProjectedReclaimableSalary decimal.Decimal `json:"projected_reclaimable_salary"`
}

type Service interface {
	// Compute builds the leakage report for the period and writes the
	// resulting totals back onto the period profile.
	Compute(ctx context.Context, userID snowflake.ID, period string) (*Report, error)
}
