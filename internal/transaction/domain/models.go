package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	baselinedomain "github.com/fintraq/fintraq/internal/baseline/domain"
)

type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Transaction is a clean, pre-categorized spend record handed off by the
// upstream categorization service. No free-text parsing happens here.
type Transaction struct {
	ID          snowflake.ID             `gorm:"primaryKey"`
	UserID      snowflake.ID             `gorm:"not null;index:ix_transactions_user_date,priority:1"`
	OccurredOn  time.Time                `gorm:"type:date;not null;index:ix_transactions_user_date,priority:2"`
	Amount      decimal.Decimal          `gorm:"type:DECIMAL(12,2);not null"`
	Category    string                   `gorm:"not null"`
	Tier        baselinedomain.SpendTier `gorm:"not null"`
	Direction   Direction                `gorm:"not null;default:'debit'"`
	Description string                   ``
	CreatedAt   time.Time                `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }

type IngestItem struct {
	OccurredOn  string `json:"occurred_on"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Direction   string `json:"direction,omitempty"`
	Description string `json:"description,omitempty"`
}

type IngestRequest struct {
	Transactions []IngestItem `json:"transactions" binding:"required"`
}

type IngestResponse struct {
	Ingested int `json:"ingested"`
}

// CategoryTotal is a per-category debit sum over a date range.
type CategoryTotal struct {
	Category string
	Tier     baselinedomain.SpendTier
	Total    decimal.Decimal
}

var (
	ErrEmptyBatch       = errors.New("empty_transaction_batch")
	ErrInvalidAmount    = errors.New("invalid_transaction_amount")
	ErrInvalidDate      = errors.New("invalid_transaction_date")
	ErrInvalidCategory  = errors.New("invalid_transaction_category")
	ErrInvalidDirection = errors.New("invalid_transaction_direction")
)

func ParseDirection(value string) (Direction, error) {
	if value == "" {
		return DirectionDebit, nil
	}
	switch Direction(value) {
	case DirectionDebit, DirectionCredit:
		return Direction(value), nil
	}
	return "", ErrInvalidDirection
}
