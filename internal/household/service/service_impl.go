package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fintraq/fintraq/internal/clock"
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  householddomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  householddomain.Repository
}

func NewService(p Params) householddomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("household.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Upsert(ctx context.Context, userID snowflake.ID, req householddomain.UpsertRequest) (*householddomain.Response, error) {
	if req.NumAdults < 1 || req.DependentsUnder6 < 0 || req.Dependents6To17 < 0 || req.DependentsOver18 < 0 {
		return nil, householddomain.ErrInvalidHouseholdCounts
	}

	regionTier, err := householddomain.ParseRegionTier(strings.TrimSpace(req.RegionTier))
	if err != nil {
		return nil, err
	}
	incomeBand, err := householddomain.ParseIncomeBand(strings.TrimSpace(req.IncomeBand))
	if err != nil {
		return nil, err
	}

	netIncome, err := decimal.NewFromString(strings.TrimSpace(req.MonthlyNetIncome))
	if err != nil || netIncome.IsNegative() {
		return nil, householddomain.ErrInvalidNetIncome
	}

	now := s.clock.Now()
	profile := &householddomain.HouseholdProfile{
		ID:               s.genID.Generate(),
		UserID:           userID,
		NumAdults:        req.NumAdults,
		DependentsUnder6: req.DependentsUnder6,
		Dependents6To17:  req.Dependents6To17,
		DependentsOver18: req.DependentsOver18,
		RegionTier:       regionTier,
		IncomeBand:       incomeBand,
		MonthlyNetIncome: netIncome.Round(2),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Upsert(ctx, s.db, profile); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID) (*householddomain.Response, error) {
	return s.toResponse(ctx, userID)
}

func (s *Service) toResponse(ctx context.Context, userID snowflake.ID) (*householddomain.Response, error) {
	profile, err := s.repo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, householddomain.ErrNotFound
	}

	efs, err := householddomain.EFSFor(profile)
	if err != nil {
		return nil, err
	}

	return &householddomain.Response{
		UserID:           profile.UserID.String(),
		NumAdults:        profile.NumAdults,
		DependentsUnder6: profile.DependentsUnder6,
		Dependents6To17:  profile.Dependents6To17,
		DependentsOver18: profile.DependentsOver18,
		RegionTier:       profile.RegionTier,
		IncomeBand:       profile.IncomeBand,
		MonthlyNetIncome: profile.MonthlyNetIncome,
		EFS:              efs,
		UpdatedAt:        profile.UpdatedAt,
	}, nil
}
