package seed

import (
	"context"
	"errors"

	baselinedomain "github.com/fintraq/fintraq/internal/baseline/domain"
	"gorm.io/gorm"
)

// EnsureBaselineCategories seeds the per-category base-need reference table
// used by the baseline engine. Rows already present are left untouched so
// operators can tune the reference values without them being reset on boot.
func EnsureBaselineCategories(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, category := range baselinedomain.DefaultCategories() {
			var count int64
			if err := tx.WithContext(ctx).Raw(
				`SELECT COUNT(1) FROM baseline_categories WHERE category = ?`,
				category.Category,
			).Scan(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			if err := tx.WithContext(ctx).Exec(
				`INSERT INTO baseline_categories (category, tier, base_need) VALUES (?, ?, ?)`,
				category.Category,
				string(category.Tier),
				category.BaseNeed,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
