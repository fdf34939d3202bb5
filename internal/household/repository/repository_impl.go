package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() householddomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, p *householddomain.HouseholdProfile) error {
	existing, err := r.FindByUser(ctx, db, p.UserID)
	if err != nil {
		return err
	}
	if existing == nil {
		return db.WithContext(ctx).Exec(
			`INSERT INTO household_profiles (
				id, user_id, num_adults, dependents_under_6, dependents_6_to_17, dependents_over_18,
				region_tier, income_band, monthly_net_income, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID,
			p.UserID,
			p.NumAdults,
			p.DependentsUnder6,
			p.Dependents6To17,
			p.DependentsOver18,
			string(p.RegionTier),
			string(p.IncomeBand),
			p.MonthlyNetIncome,
			p.CreatedAt,
			p.UpdatedAt,
		).Error
	}

	return db.WithContext(ctx).Exec(
		`UPDATE household_profiles
		 SET num_adults = ?, dependents_under_6 = ?, dependents_6_to_17 = ?, dependents_over_18 = ?,
		     region_tier = ?, income_band = ?, monthly_net_income = ?, updated_at = ?
		 WHERE user_id = ?`,
		p.NumAdults,
		p.DependentsUnder6,
		p.Dependents6To17,
		p.DependentsOver18,
		string(p.RegionTier),
		string(p.IncomeBand),
		p.MonthlyNetIncome,
		p.UpdatedAt,
		p.UserID,
	).Error
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*householddomain.HouseholdProfile, error) {
	var profile householddomain.HouseholdProfile
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, num_adults, dependents_under_6, dependents_6_to_17, dependents_over_18,
		        region_tier, income_band, monthly_net_income, created_at, updated_at
		 FROM household_profiles WHERE user_id = ?`,
		userID,
	).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, nil
	}
	return &profile, nil
}
