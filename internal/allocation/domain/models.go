package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type RuleType string

const (
	RuleTypeGoal        RuleType = "goal"
	RuleTypeTaxSaving   RuleType = "tax_saving"
	RuleTypeDebtPayment RuleType = "debt_payment"
)

// NoiseThreshold is the smallest reclaimable fund worth acting on. Below
// it the engine suggests nothing and waits for the fund to grow.
var NoiseThreshold = decimal.RequireFromString("500.00")

// AllocationRule is a user's standing instruction for reclaimed money.
// Rules are deactivated, never deleted, so ledger history stays coherent.
// Month-to-date funding is not stored here: it is derived from the ledger
// per period, so a target funded in one month is offered again in the next.
type AllocationRule struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	UserID        snowflake.ID    `gorm:"not null;uniqueIndex:ux_allocation_rules_user_name,priority:1"`
	Name          string          `gorm:"not null;uniqueIndex:ux_allocation_rules_user_name,priority:2"`
	RuleType      RuleType        `gorm:"not null"`
	Priority      int             `gorm:"not null;default:1"`
	MonthlyTarget decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	DestinationID string          `gorm:"not null"`
	Active        bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AllocationRule) TableName() string { return "allocation_rules" }

// Consent records one committed allocation action. The consent key is the
// client's idempotency token: replays of the same key are no-ops.
type Consent struct {
	ID         snowflake.ID    `gorm:"primaryKey"`
	UserID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_allocation_consents_user_key,priority:1"`
	Period     time.Time       `gorm:"type:date;not null"`
	ConsentKey string          `gorm:"not null;uniqueIndex:ux_allocation_consents_user_key,priority:2"`
	Amount     decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Consent) TableName() string { return "allocation_consents" }

// LedgerEntry is the append-only record of one suggested transfer the user
// consented to. No real money moves here.
type LedgerEntry struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	UserID    snowflake.ID    `gorm:"not null"`
	ConsentID snowflake.ID    `gorm:"not null"`
	RuleID    snowflake.ID    `gorm:"not null"`
	Period    time.Time       `gorm:"type:date;not null"`
	Amount    decimal.Decimal `gorm:"type:DECIMAL(12,2);not null"`
	Status    string          `gorm:"not null;default:'completed'"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "allocation_ledger" }

const LedgerStatusCompleted = "completed"

type CreateRuleRequest struct {
	Name          string `json:"name" binding:"required"`
	RuleType      string `json:"rule_type" binding:"required"`
	Priority      int    `json:"priority"`
	MonthlyTarget string `json:"monthly_target" binding:"required"`
	DestinationID string `json:"destination_id" binding:"required"`
}

type UpdateRuleRequest struct {
	Priority      *int    `json:"priority,omitempty"`
	MonthlyTarget *string `json:"monthly_target,omitempty"`
	DestinationID *string `json:"destination_id,omitempty"`
}

type RuleResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	RuleType      RuleType        `json:"rule_type"`
	Priority      int             `json:"priority"`
	MonthlyTarget decimal.Decimal `json:"monthly_target"`
	DestinationID string          `json:"destination_id"`
	Active        bool            `json:"active"`
	FundedMTD     decimal.Decimal `json:"funded_mtd"`
}

// SuggestionLine is one proposed transfer within a plan.
type SuggestionLine struct {
	RuleID        string          `json:"rule_id"`
	RuleName      string          `json:"rule_name"`
	RuleType      RuleType        `json:"rule_type"`
	DestinationID string          `json:"destination_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// SuggestionPlan is the read-only allocation proposal. Nothing moves until
// the user consents. TotalSuggested plus Unallocated always equals
// Available.
type SuggestionPlan struct {
	Period         string           `json:"period"`
	Available      decimal.Decimal  `json:"available"`
	Lines          []SuggestionLine `json:"lines"`
	TotalSuggested decimal.Decimal  `json:"total_suggested"`
	Unallocated    decimal.Decimal  `json:"unallocated"`
	Message        string           `json:"message,omitempty"`
}

type ConsentLine struct {
	RuleID string `json:"rule_id" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

type ConsentRequest struct {
	ConsentKey string        `json:"consent_key" binding:"required"`
	Period     string        `json:"period" binding:"required"`
	Lines      []ConsentLine `json:"lines" binding:"required"`
}

// ConsentResult reports what the commit changed. Duplicate is true when the
// consent key had already been processed and nothing moved this time.
type ConsentResult struct {
	AmountCommitted      decimal.Decimal `json:"amount_committed"`
	TotalAutotransferred decimal.Decimal `json:"total_autotransferred"`
	EffectiveSalary      decimal.Decimal `json:"effective_salary"`
	Duplicate            bool            `json:"duplicate"`
}

var (
	ErrRuleNotFound            = errors.New("allocation_rule_not_found")
	ErrInvalidRuleType         = errors.New("invalid_rule_type")
	ErrInvalidRuleTarget       = errors.New("invalid_rule_target")
	ErrDuplicateRuleName       = errors.New("duplicate_rule_name")
	ErrInvalidConsentKey       = errors.New("invalid_consent_key")
	ErrEmptyConsent            = errors.New("empty_consent")
	ErrInvalidConsentAmount    = errors.New("invalid_consent_amount")
	ErrConsentExceedsAvailable = errors.New("consent_exceeds_available")
	ErrTaxHeadroomExceeded     = errors.New("tax_headroom_exceeded")
)

func ParseRuleType(value string) (RuleType, error) {
	switch RuleType(value) {
	case RuleTypeGoal, RuleTypeTaxSaving, RuleTypeDebtPayment:
		return RuleType(value), nil
	}
	return "", ErrInvalidRuleType
}
