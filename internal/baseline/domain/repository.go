package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ListCategories(ctx context.Context, db *gorm.DB) ([]BaselineCategory, error)
	FindCategory(ctx context.Context, db *gorm.DB, category string) (*BaselineCategory, error)
	UpsertCategory(ctx context.Context, db *gorm.DB, category *BaselineCategory) error
}
