package repository

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"github.com/fintraq/fintraq/internal/baseline/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListCategories(ctx context.Context, db *gorm.DB) ([]domain.BaselineCategory, error) {
	rows, err := db.WithContext(ctx).Raw(`
		SELECT category, tier, base_need
		FROM baseline_categories
		ORDER BY category`,
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.BaselineCategory
	for rows.Next() {
		var category domain.BaselineCategory
		if err := rows.Scan(&category.Category, &category.Tier, &category.BaseNeed); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *repo) FindCategory(ctx context.Context, db *gorm.DB, name string) (*domain.BaselineCategory, error) {
	row := db.WithContext(ctx).Raw(`
		SELECT category, tier, base_need
		FROM baseline_categories
		WHERE category = ?`,
		name,
	).Row()

	var category domain.BaselineCategory
	if err := row.Scan(&category.Category, &category.Tier, &category.BaseNeed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *repo) UpsertCategory(ctx context.Context, db *gorm.DB, category *domain.BaselineCategory) error {
	existing, err := r.FindCategory(ctx, db, category.Category)
	if err != nil {
		return err
	}
	if existing == nil {
		return db.WithContext(ctx).Exec(`
			INSERT INTO baseline_categories (category, tier, base_need)
			VALUES (?, ?, ?)`,
			category.Category, string(category.Tier), category.BaseNeed,
		).Error
	}
	return db.WithContext(ctx).Exec(`
		UPDATE baseline_categories
		SET tier = ?, base_need = ?
		WHERE category = ?`,
		string(category.Tier), category.BaseNeed, category.Category,
	).Error
}
