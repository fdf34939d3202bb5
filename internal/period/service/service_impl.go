package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fintraq/fintraq/internal/clock"
	commitmentdomain "github.com/fintraq/fintraq/internal/commitment/domain"
	"github.com/fintraq/fintraq/internal/config"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
)

type Params struct {
	fx.In

	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      perioddomain.Repository
	Projector commitmentdomain.Projector
}

type Service struct {
	cfg       config.Config
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      perioddomain.Repository
	projector commitmentdomain.Projector
}

func NewService(p Params) perioddomain.Service {
	return &Service{
		cfg:       p.Config,
		db:        p.DB,
		log:       p.Log.Named("period.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		projector: p.Projector,
	}
}

func (s *Service) Open(ctx context.Context, userID snowflake.ID, req perioddomain.OpenRequest) (*perioddomain.Response, error) {
	period, err := perioddomain.ParsePeriod(strings.TrimSpace(req.Period))
	if err != nil {
		return nil, err
	}

	netIncome, err := decimal.NewFromString(strings.TrimSpace(req.NetIncome))
	if err != nil || netIncome.IsNegative() {
		return nil, perioddomain.ErrInvalidAmount
	}

	fixedTotal, err := s.resolveFixedTotal(ctx, userID, period, req.FixedCommitmentTotal)
	if err != nil {
		return nil, err
	}

	taxHeadroom, err := s.resolveTaxHeadroom(ctx, userID, period, req.TaxHeadroomAnnual)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByUserPeriod(ctx, s.db, userID, period)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		now := s.clock.Now()
		profile := &perioddomain.PeriodProfile{
			ID:                         s.genID.Generate(),
			UserID:                     userID,
			Period:                     period,
			NetIncome:                  netIncome.Round(2),
			FixedCommitmentTotal:       fixedTotal,
			VariableSpendTotal:         decimal.Zero,
			TotalLeakage:               decimal.Zero,
			ProjectedReclaimableSalary: decimal.Zero,
			TotalAutotransferred:       decimal.Zero,
			TaxHeadroomRemaining:       taxHeadroom,
			CreatedAt:                  now,
			UpdatedAt:                  now,
		}
		if err := s.repo.Insert(ctx, s.db, profile); err != nil {
			return nil, err
		}
		return s.toResponse(ctx, userID, period)
	}

	update := perioddomain.OpeningUpdate{
		NetIncome:            netIncome.Round(2),
		FixedCommitmentTotal: fixedTotal,
		TaxHeadroomRemaining: existing.TaxHeadroomRemaining,
	}
	if strings.TrimSpace(req.TaxHeadroomAnnual) != "" {
		update.TaxHeadroomRemaining = taxHeadroom
	}

	err = s.repo.ApplyOpening(ctx, s.db, userID, period, existing.LockVersion, update)
	if errors.Is(err, perioddomain.ErrVersionConflict) {
		// one retry against the fresh version, then give up
		existing, rerr := s.repo.FindByUserPeriod(ctx, s.db, userID, period)
		if rerr != nil {
			return nil, rerr
		}
		if existing == nil {
			return nil, perioddomain.ErrNotFound
		}
		err = s.repo.ApplyOpening(ctx, s.db, userID, period, existing.LockVersion, update)
	}
	if err != nil {
		return nil, err
	}

	return s.toResponse(ctx, userID, period)
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID, period string) (*perioddomain.Response, error) {
	parsed, err := perioddomain.ParsePeriod(strings.TrimSpace(period))
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, userID, parsed)
}

func (s *Service) Latest(ctx context.Context, userID snowflake.ID) (*perioddomain.Response, error) {
	profile, err := s.repo.FindLatestByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, perioddomain.ErrNotFound
	}
	return toResponse(profile), nil
}

// resolveFixedTotal uses the caller-supplied figure when present and falls
// back to the recurring-commitment projection otherwise.
func (s *Service) resolveFixedTotal(ctx context.Context, userID snowflake.ID, period time.Time, raw string) (decimal.Decimal, error) {
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		fixed, err := decimal.NewFromString(trimmed)
		if err != nil || fixed.IsNegative() {
			return decimal.Zero, perioddomain.ErrInvalidAmount
		}
		return fixed.Round(2), nil
	}

	projection, err := s.projector.Project(ctx, userID, period)
	if err != nil {
		return decimal.Zero, err
	}
	s.log.Debug("projected fixed commitments",
		zap.String("user_id", userID.String()),
		zap.String("total", projection.Total.String()),
		zap.Int("categories", len(projection.Categories)),
	)
	return projection.Total, nil
}

// resolveTaxHeadroom picks the opening tax headroom for a period. Headroom
// is an annual capacity, so within a calendar year the latest profile's
// remaining value carries forward instead of resetting each month.
func (s *Service) resolveTaxHeadroom(ctx context.Context, userID snowflake.ID, period time.Time, raw string) (decimal.Decimal, error) {
	annual := s.cfg.DefaultTaxHeadroomAnnual
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		annual = trimmed
	}
	headroom, err := decimal.NewFromString(annual)
	if err != nil || headroom.IsNegative() {
		return decimal.Zero, perioddomain.ErrInvalidAmount
	}

	latest, err := s.repo.FindLatestByUser(ctx, s.db, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if latest != nil && latest.Period.Year() == period.Year() && latest.Period.Before(period) {
		return latest.TaxHeadroomRemaining, nil
	}
	return headroom.Round(2), nil
}

func (s *Service) toResponse(ctx context.Context, userID snowflake.ID, period time.Time) (*perioddomain.Response, error) {
	profile, err := s.repo.FindByUserPeriod(ctx, s.db, userID, period)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, perioddomain.ErrNotFound
	}
	return toResponse(profile), nil
}

func toResponse(profile *perioddomain.PeriodProfile) *perioddomain.Response {
	return &perioddomain.Response{
		UserID:                     profile.UserID.String(),
		Period:                     perioddomain.FormatPeriod(profile.Period),
		NetIncome:                  profile.NetIncome,
		FixedCommitmentTotal:       profile.FixedCommitmentTotal,
		VariableSpendTotal:         profile.VariableSpendTotal,
		TotalLeakage:               profile.TotalLeakage,
		ProjectedReclaimableSalary: profile.ProjectedReclaimableSalary,
		TotalAutotransferred:       profile.TotalAutotransferred,
		TaxHeadroomRemaining:       profile.TaxHeadroomRemaining,
	}
}
