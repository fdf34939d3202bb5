package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Card is one proactive insight shown to the user, ordered by priority
// (lower first).
type Card struct {
	Priority   int             `json:"priority"`
	Severity   Severity        `json:"severity"`
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	UsageRatio decimal.Decimal `json:"usage_ratio,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
}

type Service interface {
	// Insights derives the period's insight cards. Users without a
	// computed essential target get none.
	Insights(ctx context.Context, userID snowflake.ID, period string) ([]Card, error)
}
