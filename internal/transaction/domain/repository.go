package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, transactions []*Transaction) error

	// CategoryTotals sums debits per category over [from, to). Credits are
	// excluded; refunds are an upstream concern.
	CategoryTotals(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to time.Time) ([]CategoryTotal, error)
}
