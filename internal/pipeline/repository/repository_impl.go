package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/fintraq/fintraq/internal/pipeline/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, profile *domain.DerivedProfile) error {
	existing, err := r.FindByUser(ctx, db, profile.UserID)
	if err != nil {
		return err
	}
	if existing == nil {
		return db.WithContext(ctx).Exec(`
			INSERT INTO derived_profiles (
				user_id, efs, efficiency_factor, efficiency_fallback,
				essential_target, computed_at
			) VALUES (?, ?, ?, ?, ?, ?)`,
			profile.UserID,
			profile.EFS,
			profile.EfficiencyFactor,
			profile.EfficiencyFallback,
			profile.EssentialTarget,
			profile.ComputedAt,
		).Error
	}
	return db.WithContext(ctx).Exec(`
		UPDATE derived_profiles
		SET efs = ?,
		    efficiency_factor = ?,
		    efficiency_fallback = ?,
		    essential_target = ?,
		    computed_at = ?
		WHERE user_id = ?`,
		profile.EFS,
		profile.EfficiencyFactor,
		profile.EfficiencyFallback,
		profile.EssentialTarget,
		profile.ComputedAt,
		profile.UserID,
	).Error
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.DerivedProfile, error) {
	row := db.WithContext(ctx).Raw(`
		SELECT user_id, efs, efficiency_factor, efficiency_fallback,
		       essential_target, computed_at
		FROM derived_profiles
		WHERE user_id = ?`,
		userID,
	).Row()

	var profile domain.DerivedProfile
	err := row.Scan(
		&profile.UserID,
		&profile.EFS,
		&profile.EfficiencyFactor,
		&profile.EfficiencyFallback,
		&profile.EssentialTarget,
		&profile.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}
