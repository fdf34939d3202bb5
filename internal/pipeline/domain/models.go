package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DerivedProfile is the computed snapshot behind baseline and leakage math:
// the household's equivalent family size, the peer-benchmarked efficiency
// factor, and the monthly essential spend target. Replaced wholesale on
// every pipeline run; nothing else mutates it.
type DerivedProfile struct {
	UserID             snowflake.ID    `gorm:"primaryKey"`
	EFS                decimal.Decimal `gorm:"column:efs;type:DECIMAL(5,2);not null"`
	EfficiencyFactor   decimal.Decimal `gorm:"type:DECIMAL(6,4);not null"`
	EfficiencyFallback bool            `gorm:"not null;default:false"`
	EssentialTarget    decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	ComputedAt         time.Time       `gorm:"not null"`
}

// TableName sets the database table name.
func (DerivedProfile) TableName() string { return "derived_profiles" }

type Response struct {
	UserID             string          `json:"user_id"`
	EFS                decimal.Decimal `json:"equivalent_family_size"`
	EfficiencyFactor   decimal.Decimal `json:"efficiency_factor"`
	EfficiencyFallback bool            `json:"efficiency_fallback"`
	EssentialTarget    decimal.Decimal `json:"essential_target"`
	ComputedAt         time.Time       `json:"computed_at"`
}

type RecomputeResult struct {
	Profile  Response `json:"derived_profile"`
	Period   string   `json:"period"`
	Duration string   `json:"duration"`
}

var ErrDerivedProfileMissing = errors.New("derived_profile_missing")

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, profile *DerivedProfile) error
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*DerivedProfile, error)
}

type Service interface {
	// Recompute runs the full derivation sequence for one user and period:
	// household composition, peer benchmark, baselines, leakage.
	Recompute(ctx context.Context, userID snowflake.ID, period string) (*RecomputeResult, error)
	DerivedProfile(ctx context.Context, userID snowflake.ID) (*Response, error)
}
