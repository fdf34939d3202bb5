package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateRule(ctx context.Context, userID snowflake.ID, req CreateRuleRequest) (*RuleResponse, error)
	UpdateRule(ctx context.Context, userID, ruleID snowflake.ID, req UpdateRuleRequest) (*RuleResponse, error)
	DeactivateRule(ctx context.Context, userID, ruleID snowflake.ID) (*RuleResponse, error)
	ListRules(ctx context.Context, userID snowflake.ID) ([]RuleResponse, error)

	// Suggest builds a read-only allocation plan for the period's
	// currently available reclaimed fund.
	Suggest(ctx context.Context, userID snowflake.ID, period string) (*SuggestionPlan, error)

	// Consent atomically commits a set of allocation lines. Replays of the
	// same consent key are no-ops.
	Consent(ctx context.Context, userID snowflake.ID, req ConsentRequest) (*ConsentResult, error)
}
