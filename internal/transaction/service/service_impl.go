package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	baselinedomain "github.com/fintraq/fintraq/internal/baseline/domain"
	"github.com/fintraq/fintraq/internal/clock"
	transactiondomain "github.com/fintraq/fintraq/internal/transaction/domain"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         transactiondomain.Repository
	BaselineRepo baselinedomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         transactiondomain.Repository
	baselineRepo baselinedomain.Repository
}

func NewService(p Params) transactiondomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("transaction.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		baselineRepo: p.BaselineRepo,
	}
}

func (s *Service) Ingest(ctx context.Context, userID snowflake.ID, req transactiondomain.IngestRequest) (*transactiondomain.IngestResponse, error) {
	if len(req.Transactions) == 0 {
		return nil, transactiondomain.ErrEmptyBatch
	}

	now := s.clock.Now()
	records := make([]*transactiondomain.Transaction, 0, len(req.Transactions))
	for _, item := range req.Transactions {
		record, err := s.buildRecord(ctx, userID, item, now)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.InsertBatch(ctx, tx, records)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("ingested transactions",
		zap.String("user_id", userID.String()),
		zap.Int("count", len(records)),
	)
	return &transactiondomain.IngestResponse{Ingested: len(records)}, nil
}

func (s *Service) buildRecord(ctx context.Context, userID snowflake.ID, item transactiondomain.IngestItem, now time.Time) (*transactiondomain.Transaction, error) {
	occurredOn, err := time.Parse("2006-01-02", strings.TrimSpace(item.OccurredOn))
	if err != nil {
		return nil, transactiondomain.ErrInvalidDate
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(item.Amount))
	if err != nil || !amount.IsPositive() {
		return nil, transactiondomain.ErrInvalidAmount
	}

	category := strings.ToLower(strings.TrimSpace(item.Category))
	if category == "" {
		return nil, transactiondomain.ErrInvalidCategory
	}

	direction, err := transactiondomain.ParseDirection(strings.TrimSpace(item.Direction))
	if err != nil {
		return nil, err
	}

	tier, err := s.resolveTier(ctx, category)
	if err != nil {
		return nil, err
	}

	return &transactiondomain.Transaction{
		ID:          s.genID.Generate(),
		UserID:      userID,
		OccurredOn:  occurredOn,
		Amount:      amount.Round(2),
		Category:    category,
		Tier:        tier,
		Direction:   direction,
		Description: strings.TrimSpace(item.Description),
		CreatedAt:   now,
	}, nil
}

// resolveTier maps a category to its spend tier via the reference table.
// Categories the table does not know are treated as pure discretionary.
func (s *Service) resolveTier(ctx context.Context, category string) (baselinedomain.SpendTier, error) {
	ref, err := s.baselineRepo.FindCategory(ctx, s.db, category)
	if err != nil {
		return "", err
	}
	if ref == nil {
		return baselinedomain.TierPureDiscretionary, nil
	}
	return ref.Tier, nil
}
