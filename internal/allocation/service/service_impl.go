package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	allocationdomain "github.com/fintraq/fintraq/internal/allocation/domain"
	"github.com/fintraq/fintraq/internal/clock"
	"github.com/fintraq/fintraq/internal/observability/metrics"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	"github.com/fintraq/fintraq/pkg/db"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Metrics    *metrics.Metrics
	Repo       allocationdomain.Repository
	PeriodRepo perioddomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	metrics    *metrics.Metrics
	repo       allocationdomain.Repository
	periodRepo perioddomain.Repository
}

func NewService(p Params) allocationdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("allocation.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		metrics:    p.Metrics,
		repo:       p.Repo,
		periodRepo: p.PeriodRepo,
	}
}

func (s *Service) CreateRule(ctx context.Context, userID snowflake.ID, req allocationdomain.CreateRuleRequest) (*allocationdomain.RuleResponse, error) {
	ruleType, err := allocationdomain.ParseRuleType(strings.TrimSpace(req.RuleType))
	if err != nil {
		return nil, err
	}

	target, err := decimal.NewFromString(strings.TrimSpace(req.MonthlyTarget))
	if err != nil || !target.IsPositive() {
		return nil, allocationdomain.ErrInvalidRuleTarget
	}

	priority := req.Priority
	if priority < 1 {
		priority = 1
	}

	now := s.clock.Now()
	rule := &allocationdomain.AllocationRule{
		ID:            s.genID.Generate(),
		UserID:        userID,
		Name:          strings.TrimSpace(req.Name),
		RuleType:      ruleType,
		Priority:      priority,
		MonthlyTarget: target.Round(2),
		DestinationID: strings.TrimSpace(req.DestinationID),
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.InsertRule(ctx, s.db, rule); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, allocationdomain.ErrDuplicateRuleName
		}
		return nil, err
	}

	response := toRuleResponse(rule, decimal.Zero)
	return &response, nil
}

func (s *Service) UpdateRule(ctx context.Context, userID, ruleID snowflake.ID, req allocationdomain.UpdateRuleRequest) (*allocationdomain.RuleResponse, error) {
	rule, err := s.repo.FindRule(ctx, s.db, userID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, allocationdomain.ErrRuleNotFound
	}

	if req.Priority != nil {
		if *req.Priority < 1 {
			return nil, allocationdomain.ErrInvalidRuleTarget
		}
		rule.Priority = *req.Priority
	}
	if req.MonthlyTarget != nil {
		target, err := decimal.NewFromString(strings.TrimSpace(*req.MonthlyTarget))
		if err != nil || !target.IsPositive() {
			return nil, allocationdomain.ErrInvalidRuleTarget
		}
		rule.MonthlyTarget = target.Round(2)
	}
	if req.DestinationID != nil {
		rule.DestinationID = strings.TrimSpace(*req.DestinationID)
	}

	if err := s.repo.UpdateRule(ctx, s.db, rule); err != nil {
		return nil, err
	}

	funded, err := s.fundedThisMonth(ctx, userID)
	if err != nil {
		return nil, err
	}
	response := toRuleResponse(rule, funded[rule.ID])
	return &response, nil
}

func (s *Service) DeactivateRule(ctx context.Context, userID, ruleID snowflake.ID) (*allocationdomain.RuleResponse, error) {
	if err := s.repo.DeactivateRule(ctx, s.db, userID, ruleID); err != nil {
		return nil, err
	}
	rule, err := s.repo.FindRule(ctx, s.db, userID, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, allocationdomain.ErrRuleNotFound
	}
	funded, err := s.fundedThisMonth(ctx, userID)
	if err != nil {
		return nil, err
	}
	response := toRuleResponse(rule, funded[rule.ID])
	return &response, nil
}

func (s *Service) ListRules(ctx context.Context, userID snowflake.ID) ([]allocationdomain.RuleResponse, error) {
	rules, err := s.repo.ListRules(ctx, s.db, userID, false)
	if err != nil {
		return nil, err
	}
	funded, err := s.fundedThisMonth(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]allocationdomain.RuleResponse, 0, len(rules))
	for i := range rules {
		responses = append(responses, toRuleResponse(&rules[i], funded[rules[i].ID]))
	}
	return responses, nil
}

func (s *Service) fundedThisMonth(ctx context.Context, userID snowflake.ID) (map[snowflake.ID]decimal.Decimal, error) {
	return s.repo.FundedByRuleForPeriod(ctx, s.db, userID, s.clock.Now())
}

func (s *Service) Suggest(ctx context.Context, userID snowflake.ID, rawPeriod string) (*allocationdomain.SuggestionPlan, error) {
	period, err := perioddomain.ParsePeriod(strings.TrimSpace(rawPeriod))
	if err != nil {
		return nil, err
	}

	profile, err := s.periodRepo.FindByUserPeriod(ctx, s.db, userID, period)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, perioddomain.ErrNotFound
	}

	available := profile.ProjectedReclaimableSalary.Sub(profile.TotalAutotransferred)
	if available.IsNegative() {
		available = decimal.Zero
	}

	plan := &allocationdomain.SuggestionPlan{
		Period:         perioddomain.FormatPeriod(period),
		Available:      available,
		TotalSuggested: decimal.Zero,
		Unallocated:    available,
	}

	if available.LessThan(allocationdomain.NoiseThreshold) {
		plan.Message = "reclaimable fund below actionable threshold, holding"
		return plan, nil
	}

	rules, err := s.repo.ListRules(ctx, s.db, userID, true)
	if err != nil {
		return nil, err
	}
	// funding already consented this period, so targets reset each month
	funded, err := s.repo.FundedByRuleForPeriod(ctx, s.db, userID, period)
	if err != nil {
		return nil, err
	}

	// tax-advantaged rules drain the fund first, bounded by the remaining
	// annual headroom; goals and debt payments take what is left
	remaining := available
	taxHeadroom := profile.TaxHeadroomRemaining
	for _, taxFirst := range []bool{true, false} {
		for i := range rules {
			rule := &rules[i]
			isTax := rule.RuleType == allocationdomain.RuleTypeTaxSaving
			if isTax != taxFirst {
				continue
			}

			amount := rule.MonthlyTarget.Sub(funded[rule.ID])
			if amount.GreaterThan(remaining) {
				amount = remaining
			}
			if isTax && amount.GreaterThan(taxHeadroom) {
				amount = taxHeadroom
			}
			if !amount.IsPositive() {
				continue
			}

			plan.Lines = append(plan.Lines, allocationdomain.SuggestionLine{
				RuleID:        rule.ID.String(),
				RuleName:      rule.Name,
				RuleType:      rule.RuleType,
				DestinationID: rule.DestinationID,
				Amount:        amount,
			})
			plan.TotalSuggested = plan.TotalSuggested.Add(amount)
			remaining = remaining.Sub(amount)
			if isTax {
				taxHeadroom = taxHeadroom.Sub(amount)
			}
			if remaining.IsZero() {
				break
			}
		}
	}

	plan.Unallocated = available.Sub(plan.TotalSuggested)
	return plan, nil
}

func (s *Service) Consent(ctx context.Context, userID snowflake.ID, req allocationdomain.ConsentRequest) (*allocationdomain.ConsentResult, error) {
	result, err := s.consent(ctx, userID, req)
	if err != nil {
		s.metrics.ConsentRejections.Inc()
		return nil, err
	}
	if !result.Duplicate {
		s.metrics.ConsentCommits.Inc()
	}
	return result, nil
}

func (s *Service) consent(ctx context.Context, userID snowflake.ID, req allocationdomain.ConsentRequest) (*allocationdomain.ConsentResult, error) {
	if _, err := uuid.Parse(strings.TrimSpace(req.ConsentKey)); err != nil {
		return nil, allocationdomain.ErrInvalidConsentKey
	}
	consentKey := strings.TrimSpace(req.ConsentKey)

	period, err := perioddomain.ParsePeriod(strings.TrimSpace(req.Period))
	if err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, allocationdomain.ErrEmptyConsent
	}

	lines, total, err := s.parseLines(ctx, userID, req.Lines)
	if err != nil {
		return nil, err
	}

	result, err := s.commitConsent(ctx, userID, period, consentKey, lines, total)
	if errors.Is(err, perioddomain.ErrVersionConflict) {
		// a concurrent writer touched the profile; re-run once
		result, err = s.commitConsent(ctx, userID, period, consentKey, lines, total)
	}
	return result, err
}

type consentLine struct {
	rule   *allocationdomain.AllocationRule
	amount decimal.Decimal
}

func (s *Service) parseLines(ctx context.Context, userID snowflake.ID, raw []allocationdomain.ConsentLine) ([]consentLine, decimal.Decimal, error) {
	lines := make([]consentLine, 0, len(raw))
	total := decimal.Zero
	for _, item := range raw {
		ruleID, err := snowflake.ParseString(strings.TrimSpace(item.RuleID))
		if err != nil {
			return nil, decimal.Zero, allocationdomain.ErrRuleNotFound
		}

		rule, err := s.repo.FindRule(ctx, s.db, userID, ruleID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if rule == nil || !rule.Active {
			return nil, decimal.Zero, allocationdomain.ErrRuleNotFound
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(item.Amount))
		if err != nil || !amount.IsPositive() {
			return nil, decimal.Zero, allocationdomain.ErrInvalidConsentAmount
		}
		amount = amount.Round(2)

		lines = append(lines, consentLine{rule: rule, amount: amount})
		total = total.Add(amount)
	}
	return lines, total, nil
}

func (s *Service) commitConsent(ctx context.Context, userID snowflake.ID, period time.Time, consentKey string, lines []consentLine, total decimal.Decimal) (*allocationdomain.ConsentResult, error) {
	var result *allocationdomain.ConsentResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.periodRepo.FindByUserPeriod(ctx, tx, userID, period)
		if err != nil {
			return err
		}
		if profile == nil {
			return perioddomain.ErrNotFound
		}

		available := profile.ProjectedReclaimableSalary.Sub(profile.TotalAutotransferred)
		if total.GreaterThan(available) {
			return allocationdomain.ErrConsentExceedsAvailable
		}

		taxTotal := decimal.Zero
		for _, line := range lines {
			if line.rule.RuleType == allocationdomain.RuleTypeTaxSaving {
				taxTotal = taxTotal.Add(line.amount)
			}
		}
		if taxTotal.GreaterThan(profile.TaxHeadroomRemaining) {
			return allocationdomain.ErrTaxHeadroomExceeded
		}

		now := s.clock.Now()
		consent := &allocationdomain.Consent{
			ID:         s.genID.Generate(),
			UserID:     userID,
			Period:     period,
			ConsentKey: consentKey,
			Amount:     total,
			CreatedAt:  now,
		}
		inserted, err := s.repo.InsertConsent(ctx, tx, consent)
		if err != nil {
			return err
		}
		if !inserted {
			// replayed consent key: report current state, move nothing
			result = &allocationdomain.ConsentResult{
				AmountCommitted:      decimal.Zero,
				TotalAutotransferred: profile.TotalAutotransferred,
				EffectiveSalary:      profile.NetIncome.Sub(profile.TotalAutotransferred),
				Duplicate:            true,
			}
			return nil
		}

		entries := make([]*allocationdomain.LedgerEntry, 0, len(lines))
		for _, line := range lines {
			entries = append(entries, &allocationdomain.LedgerEntry{
				ID:        s.genID.Generate(),
				UserID:    userID,
				ConsentID: consent.ID,
				RuleID:    line.rule.ID,
				Period:    period,
				Amount:    line.amount,
				Status:    allocationdomain.LedgerStatusCompleted,
				CreatedAt: now,
			})
		}
		if err := s.repo.InsertLedgerEntries(ctx, tx, entries); err != nil {
			return err
		}

		update := perioddomain.ConsentUpdate{
			AutotransferredDelta: total,
			TaxHeadroomDelta:     taxTotal,
		}
		if err := s.periodRepo.ApplyConsent(ctx, tx, userID, period, profile.LockVersion, update); err != nil {
			return err
		}

		newTotal := profile.TotalAutotransferred.Add(total)
		result = &allocationdomain.ConsentResult{
			AmountCommitted:      total,
			TotalAutotransferred: newTotal,
			EffectiveSalary:      profile.NetIncome.Sub(newTotal),
			Duplicate:            false,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("consent committed",
		zap.String("user_id", userID.String()),
		zap.String("period", perioddomain.FormatPeriod(period)),
		zap.String("amount", result.AmountCommitted.String()),
		zap.Bool("duplicate", result.Duplicate),
	)
	return result, nil
}

func toRuleResponse(rule *allocationdomain.AllocationRule, funded decimal.Decimal) allocationdomain.RuleResponse {
	return allocationdomain.RuleResponse{
		ID:            rule.ID.String(),
		Name:          rule.Name,
		RuleType:      rule.RuleType,
		Priority:      rule.Priority,
		MonthlyTarget: rule.MonthlyTarget,
		DestinationID: rule.DestinationID,
		Active:        rule.Active,
		FundedMTD:     funded,
	}
}
