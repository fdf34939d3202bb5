package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, profile *HouseholdProfile) error
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*HouseholdProfile, error)
}
