package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/fintraq/fintraq/internal/period/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, profile *domain.PeriodProfile) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO period_profiles (
			id, user_id, period, net_income, fixed_commitment_total,
			variable_spend_total, total_leakage, projected_reclaimable_salary,
			total_autotransferred, tax_headroom_remaining, lock_version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.UserID,
		profile.Period,
		profile.NetIncome,
		profile.FixedCommitmentTotal,
		profile.VariableSpendTotal,
		profile.TotalLeakage,
		profile.ProjectedReclaimableSalary,
		profile.TotalAutotransferred,
		profile.TaxHeadroomRemaining,
		profile.LockVersion,
		profile.CreatedAt,
		profile.UpdatedAt,
	).Error
}

func (r *repo) FindByUserPeriod(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time) (*domain.PeriodProfile, error) {
	row := db.WithContext(ctx).Raw(`
		SELECT id, user_id, period, net_income, fixed_commitment_total,
		       variable_spend_total, total_leakage, projected_reclaimable_salary,
		       total_autotransferred, tax_headroom_remaining, lock_version,
		       created_at, updated_at
		FROM period_profiles
		WHERE user_id = ? AND period = ?`,
		userID, domain.Normalize(period),
	).Row()
	return scanProfile(row)
}

func (r *repo) FindLatestByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.PeriodProfile, error) {
	row := db.WithContext(ctx).Raw(`
		SELECT id, user_id, period, net_income, fixed_commitment_total,
		       variable_spend_total, total_leakage, projected_reclaimable_salary,
		       total_autotransferred, tax_headroom_remaining, lock_version,
		       created_at, updated_at
		FROM period_profiles
		WHERE user_id = ?
		ORDER BY period DESC
		LIMIT 1`,
		userID,
	).Row()
	return scanProfile(row)
}

func (r *repo) ApplyComputation(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time, expectedVersion int64, update domain.ComputationUpdate) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE period_profiles
		SET variable_spend_total = ?,
		    total_leakage = ?,
		    projected_reclaimable_salary = ?,
		    lock_version = lock_version + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND period = ? AND lock_version = ?`,
		update.VariableSpendTotal,
		update.TotalLeakage,
		update.ProjectedReclaimableSalary,
		userID, domain.Normalize(period), expectedVersion,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *repo) ApplyConsent(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time, expectedVersion int64, update domain.ConsentUpdate) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE period_profiles
		SET total_autotransferred = total_autotransferred + ?,
		    tax_headroom_remaining = tax_headroom_remaining - ?,
		    lock_version = lock_version + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND period = ? AND lock_version = ?`,
		update.AutotransferredDelta,
		update.TaxHeadroomDelta,
		userID, domain.Normalize(period), expectedVersion,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *repo) ApplyOpening(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time, expectedVersion int64, update domain.OpeningUpdate) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE period_profiles
		SET net_income = ?,
		    fixed_commitment_total = ?,
		    tax_headroom_remaining = ?,
		    lock_version = lock_version + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND period = ? AND lock_version = ?`,
		update.NetIncome,
		update.FixedCommitmentTotal,
		update.TaxHeadroomRemaining,
		userID, domain.Normalize(period), expectedVersion,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func scanProfile(row *sql.Row) (*domain.PeriodProfile, error) {
	var profile domain.PeriodProfile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Period,
		&profile.NetIncome,
		&profile.FixedCommitmentTotal,
		&profile.VariableSpendTotal,
		&profile.TotalLeakage,
		&profile.ProjectedReclaimableSalary,
		&profile.TotalAutotransferred,
		&profile.TaxHeadroomRemaining,
		&profile.LockVersion,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}
