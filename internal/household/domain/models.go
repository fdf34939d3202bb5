package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RegionTier classifies cost of living for cohort matching.
type RegionTier string

const (
	RegionTier1 RegionTier = "T1" // high cost metros
	RegionTier2 RegionTier = "T2" // medium cost
	RegionTier3 RegionTier = "T3" // low cost
)

// IncomeBand buckets net income for baseline scaling.
type IncomeBand string

const (
	IncomeBandLow  IncomeBand = "low"
	IncomeBandMid  IncomeBand = "mid"
	IncomeBandHigh IncomeBand = "high"
	IncomeBandTop  IncomeBand = "top"
)

// HouseholdProfile stores the composition counts behind the EFS factor.
// Mutated only through explicit profile updates.
type HouseholdProfile struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	UserID           snowflake.ID    `gorm:"not null;uniqueIndex:ux_household_profiles_user"`
	NumAdults        int             `gorm:"not null;default:1"`
	DependentsUnder6 int             `gorm:"column:dependents_under_6;not null;default:0"`
	Dependents6To17  int             `gorm:"column:dependents_6_to_17;not null;default:0"`
	DependentsOver18 int             `gorm:"column:dependents_over_18;not null;default:0"`
	RegionTier       RegionTier      `gorm:"type:text;not null;default:'T2'"`
	IncomeBand       IncomeBand      `gorm:"type:text;not null;default:'mid'"`
	MonthlyNetIncome decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (HouseholdProfile) TableName() string { return "household_profiles" }

type UpsertRequest struct {
	NumAdults        int    `json:"num_adults"`
	DependentsUnder6 int    `json:"dependents_under_6"`
	Dependents6To17  int    `json:"dependents_6_to_17"`
	DependentsOver18 int    `json:"dependents_over_18"`
	RegionTier       string `json:"region_tier"`
	IncomeBand       string `json:"income_band"`
	MonthlyNetIncome string `json:"monthly_net_income"`
}

type Response struct {
	UserID           string          `json:"user_id"`
	NumAdults        int             `json:"num_adults"`
	DependentsUnder6 int             `json:"dependents_under_6"`
	Dependents6To17  int             `json:"dependents_6_to_17"`
	DependentsOver18 int             `json:"dependents_over_18"`
	RegionTier       RegionTier      `json:"region_tier"`
	IncomeBand       IncomeBand      `json:"income_band"`
	MonthlyNetIncome decimal.Decimal `json:"monthly_net_income"`
	EFS              decimal.Decimal `json:"equivalent_family_size"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

var (
	ErrInvalidHouseholdCounts = errors.New("invalid_household_counts")
	ErrInvalidRegionTier      = errors.New("invalid_region_tier")
	ErrInvalidIncomeBand      = errors.New("invalid_income_band")
	ErrInvalidNetIncome       = errors.New("invalid_net_income")
	ErrNotFound               = errors.New("household_not_found")
)

// ParseRegionTier validates and normalizes a region tier value.
func ParseRegionTier(value string) (RegionTier, error) {
	switch RegionTier(value) {
	case RegionTier1, RegionTier2, RegionTier3:
		return RegionTier(value), nil
	default:
		return "", ErrInvalidRegionTier
	}
}

// ParseIncomeBand validates and normalizes an income band value.
func ParseIncomeBand(value string) (IncomeBand, error) {
	switch IncomeBand(value) {
	case IncomeBandLow, IncomeBandMid, IncomeBandHigh, IncomeBandTop:
		return IncomeBand(value), nil
	default:
		return "", ErrInvalidIncomeBand
	}
}
