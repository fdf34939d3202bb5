package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fintraq/fintraq/internal/allocation/domain"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRule(ctx context.Context, db *gorm.DB, rule *domain.AllocationRule) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO allocation_rules (
			id, user_id, name, rule_type, priority, monthly_target,
			destination_id, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.UserID,
		rule.Name,
		string(rule.RuleType),
		rule.Priority,
		rule.MonthlyTarget,
		rule.DestinationID,
		rule.Active,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repo) UpdateRule(ctx context.Context, db *gorm.DB, rule *domain.AllocationRule) error {
	return db.WithContext(ctx).Exec(`
		UPDATE allocation_rules
		SET priority = ?,
		    monthly_target = ?,
		    destination_id = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND id = ?`,
		rule.Priority,
		rule.MonthlyTarget,
		rule.DestinationID,
		rule.UserID,
		rule.ID,
	).Error
}

func (r *repo) FindRule(ctx context.Context, db *gorm.DB, userID, ruleID snowflake.ID) (*domain.AllocationRule, error) {
	row := db.WithContext(ctx).Raw(`
		SELECT id, user_id, name, rule_type, priority, monthly_target,
		       destination_id, active, created_at, updated_at
		FROM allocation_rules
		WHERE user_id = ? AND id = ?`,
		userID, ruleID,
	).Row()
	return scanRule(row)
}

func (r *repo) ListRules(ctx context.Context, db *gorm.DB, userID snowflake.ID, activeOnly bool) ([]domain.AllocationRule, error) {
	query := `
		SELECT id, user_id, name, rule_type, priority, monthly_target,
		       destination_id, active, created_at, updated_at
		FROM allocation_rules
		WHERE user_id = ?`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY priority DESC, id ASC`

	rows, err := db.WithContext(ctx).Raw(query, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.AllocationRule
	for rows.Next() {
		var rule domain.AllocationRule
		err := rows.Scan(
			&rule.ID,
			&rule.UserID,
			&rule.Name,
			&rule.RuleType,
			&rule.Priority,
			&rule.MonthlyTarget,
			&rule.DestinationID,
			&rule.Active,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *repo) DeactivateRule(ctx context.Context, db *gorm.DB, userID, ruleID snowflake.ID) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE allocation_rules
		SET active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND id = ?`,
		false, userID, ruleID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

func (r *repo) InsertConsent(ctx context.Context, db *gorm.DB, consent *domain.Consent) (bool, error) {
	result := db.WithContext(ctx).Exec(`
		INSERT INTO allocation_consents (
			id, user_id, period, consent_key, amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, consent_key) DO NOTHING`,
		consent.ID,
		consent.UserID,
		perioddomain.Normalize(consent.Period),
		consent.ConsentKey,
		consent.Amount,
		consent.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindConsentByKey(ctx context.Context, db *gorm.DB, userID snowflake.ID, consentKey string) (*domain.Consent, error) {
	row := db.WithContext(ctx).Raw(`
		SELECT id, user_id, period, consent_key, amount, created_at
		FROM allocation_consents
		WHERE user_id = ? AND consent_key = ?`,
		userID, consentKey,
	).Row()

	var consent domain.Consent
	err := row.Scan(
		&consent.ID,
		&consent.UserID,
		&consent.Period,
		&consent.ConsentKey,
		&consent.Amount,
		&consent.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &consent, nil
}

func (r *repo) InsertLedgerEntries(ctx context.Context, db *gorm.DB, entries []*domain.LedgerEntry) error {
	for _, entry := range entries {
		err := db.WithContext(ctx).Exec(`
			INSERT INTO allocation_ledger (
				id, user_id, consent_id, rule_id, period, amount, status, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			entry.UserID,
			entry.ConsentID,
			entry.RuleID,
			perioddomain.Normalize(entry.Period),
			entry.Amount,
			entry.Status,
			entry.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) LedgerTotalForPeriod(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time) (decimal.Decimal, error) {
	row := db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(amount), 0)
		FROM allocation_ledger
		WHERE user_id = ? AND period = ?`,
		userID, perioddomain.Normalize(period),
	).Row()

	var total decimal.Decimal
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repo) FundedByRuleForPeriod(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time) (map[snowflake.ID]decimal.Decimal, error) {
	rows, err := db.WithContext(ctx).Raw(`
		SELECT rule_id, COALESCE(SUM(amount), 0)
		FROM allocation_ledger
		WHERE user_id = ? AND period = ?
		GROUP BY rule_id`,
		userID, perioddomain.Normalize(period),
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	funded := make(map[snowflake.ID]decimal.Decimal)
	for rows.Next() {
		var ruleID snowflake.ID
		var total decimal.Decimal
		if err := rows.Scan(&ruleID, &total); err != nil {
			return nil, err
		}
		funded[ruleID] = total
	}
	return funded, rows.Err()
}

func scanRule(row *sql.Row) (*domain.AllocationRule, error) {
	var rule domain.AllocationRule
	err := row.Scan(
		&rule.ID,
		&rule.UserID,
		&rule.Name,
		&rule.RuleType,
		&rule.Priority,
		&rule.MonthlyTarget,
		&rule.DestinationID,
		&rule.Active,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}
