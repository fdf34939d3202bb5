package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Upsert(ctx context.Context, userID snowflake.ID, req UpsertRequest) (*Response, error)
	Get(ctx context.Context, userID snowflake.ID) (*Response, error)
}
