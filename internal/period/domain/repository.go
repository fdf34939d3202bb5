package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, profile *PeriodProfile) error
	FindByUserPeriod(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time) (*PeriodProfile, error)
	FindLatestByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*PeriodProfile, error)

	// ApplyComputation writes pipeline results onto the profile. The update
	// only lands when the row still carries expectedVersion; otherwise
	// ErrVersionConflict is returned and the caller re-reads and retries.
	ApplyComputation(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time, expectedVersion int64, update ComputationUpdate) error

	// ApplyConsent adjusts autotransfer and tax headroom totals under the
	// same version guard.
	ApplyConsent(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time, expectedVersion int64, update ConsentUpdate) error

	// ApplyOpening refreshes the income and commitment figures of an
	// already-open period.
	ApplyOpening(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time, expectedVersion int64, update OpeningUpdate) error
}
