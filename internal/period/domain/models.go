package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PeriodProfile tracks one user's income, spend and allocation totals for a
// single reporting period (a calendar month). One row per (user, period).
//
// All mutations go through the repository's guarded updates: writers carry
// the lock_version they read, and a stale version surfaces ErrVersionConflict
// instead of silently losing an update.
type PeriodProfile struct {
	ID                         snowflake.ID    `gorm:"primaryKey"`
	UserID                     snowflake.ID    `gorm:"not null;uniqueIndex:ux_period_profiles_user_period,priority:1"`
	Period                     time.Time       `gorm:"type:date;not null;uniqueIndex:ux_period_profiles_user_period,priority:2"`
	NetIncome                  decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	FixedCommitmentTotal       decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	VariableSpendTotal         decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	TotalLeakage               decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	ProjectedReclaimableSalary decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	TotalAutotransferred       decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	TaxHeadroomRemaining       decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	LockVersion                int64           `gorm:"not null;default:0"`
	CreatedAt                  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt                  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PeriodProfile) TableName() string { return "period_profiles" }

// ComputationUpdate is the leakage pipeline's write-back onto the period
// profile. Applied as one guarded update.
type ComputationUpdate struct {
	VariableSpendTotal         decimal.Decimal
	TotalLeakage               decimal.Decimal
	ProjectedReclaimableSalary decimal.Decimal
}

// ConsentUpdate moves committed consent totals onto the period profile.
type ConsentUpdate struct {
	AutotransferredDelta decimal.Decimal
	TaxHeadroomDelta     decimal.Decimal
}

// OpeningUpdate refreshes the income figures of an already-open period.
type OpeningUpdate struct {
	NetIncome            decimal.Decimal
	FixedCommitmentTotal decimal.Decimal
	TaxHeadroomRemaining decimal.Decimal
}

type OpenRequest struct {
	Period               string `json:"period"`
	NetIncome            string `json:"net_income"`
	FixedCommitmentTotal string `json:"fixed_commitment_total,omitempty"`
	TaxHeadroomAnnual    string `json:"tax_headroom_annual,omitempty"`
}

type Response struct {
	UserID                     string          `json:"user_id"`
	Period                     string          `json:"period"`
	NetIncome                  decimal.Decimal `json:"net_income"`
	FixedCommitmentTotal       decimal.Decimal `json:"fixed_commitment_total"`
	VariableSpendTotal         decimal.Decimal `json:"variable_spend_total"`
	TotalLeakage               decimal.Decimal `json:"total_leakage"`
	ProjectedReclaimableSalary decimal.Decimal `json:"projected_reclaimable_salary"`
	TotalAutotransferred       decimal.Decimal `json:"total_autotransferred"`
	TaxHeadroomRemaining       decimal.Decimal `json:"tax_headroom_remaining"`
}

var (
	ErrNotFound        = errors.New("period_profile_not_found")
	ErrVersionConflict = errors.New("period_profile_version_conflict")
	ErrInvalidPeriod   = errors.New("invalid_period")
	ErrInvalidAmount   = errors.New("invalid_amount")
)

// Normalize truncates a date to the first day of its calendar month in UTC.
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParsePeriod accepts YYYY-MM or YYYY-MM-DD and normalizes to the month start.
func ParsePeriod(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return Normalize(parsed), nil
		}
	}
	return time.Time{}, ErrInvalidPeriod
}

// FormatPeriod renders a period key for API payloads. The key round-trips
// through ParsePeriod's primary layout.
func FormatPeriod(t time.Time) string {
	return Normalize(t).Format("2006-01")
}
