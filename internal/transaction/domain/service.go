package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Ingest(ctx context.Context, userID snowflake.ID, req IngestRequest) (*IngestResponse, error)
}
