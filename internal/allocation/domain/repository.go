package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	InsertRule(ctx context.Context, db *gorm.DB, rule *AllocationRule) error
	UpdateRule(ctx context.Context, db *gorm.DB, rule *AllocationRule) error
	FindRule(ctx context.Context, db *gorm.DB, userID, ruleID snowflake.ID) (*AllocationRule, error)

	// ListRules returns the user's rules ordered for allocation: priority
	// descending, then id ascending for a stable tiebreak.
	ListRules(ctx context.Context, db *gorm.DB, userID snowflake.ID, activeOnly bool) ([]AllocationRule, error)

	DeactivateRule(ctx context.Context, db *gorm.DB, userID, ruleID snowflake.ID) error

	// InsertConsent inserts the consent row, returning false without error
	// when the (user, consent_key) pair already exists.
	InsertConsent(ctx context.Context, db *gorm.DB, consent *Consent) (bool, error)
	FindConsentByKey(ctx context.Context, db *gorm.DB, userID snowflake.ID, consentKey string) (*Consent, error)

	InsertLedgerEntries(ctx context.Context, db *gorm.DB, entries []*LedgerEntry) error
	LedgerTotalForPeriod(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time) (decimal.Decimal, error)

	// FundedByRuleForPeriod sums the period's ledger amounts per rule. Rules
	// with no entries that month are absent from the map.
	FundedByRuleForPeriod(ctx context.Context, db *gorm.DB, userID snowflake.ID, period time.Time) (map[snowflake.ID]decimal.Decimal, error)
}
