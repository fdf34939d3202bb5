package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Open creates the period profile for a month. When the request omits
	// fixed_commitment_total, the total is projected from recurring spend
	// in prior months.
	Open(ctx context.Context, userID snowflake.ID, req OpenRequest) (*Response, error)
	Get(ctx context.Context, userID snowflake.ID, period string) (*Response, error)
	Latest(ctx context.Context, userID snowflake.ID) (*Response, error)
}
