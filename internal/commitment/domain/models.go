package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Projection is the recurring-commitment estimate for an upcoming period.
type Projection struct {
	Total      decimal.Decimal
	Categories []CategoryProjection
}

type CategoryProjection struct {
	Category string
	Monthly  decimal.Decimal
	Months   int
}

// Projector estimates a period's fixed commitments from prior spend.
type Projector interface {
	// Project looks at the trailing months before period and returns the
	// projected fixed commitment total for it.
	Project(ctx context.Context, userID snowflake.ID, period time.Time) (*Projection, error)
}
