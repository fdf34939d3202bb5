package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	insightdomain "github.com/fintraq/fintraq/internal/insight/domain"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	periodrepository "github.com/fintraq/fintraq/internal/period/repository"
	pipelinedomain "github.com/fintraq/fintraq/internal/pipeline/domain"
	pipelinerepository "github.com/fintraq/fintraq/internal/pipeline/repository"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type fixture struct {
	db     *gorm.DB
	svc    insightdomain.Service
	node   *snowflake.Node
	period time.Time
	userID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&perioddomain.PeriodProfile{},
		&pipelinedomain.DerivedProfile{},
	))

	node, _ := snowflake.NewNode(1)
	svc := NewService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		PeriodRepo:  periodrepository.Provide(),
		DerivedRepo: pipelinerepository.Provide(),
	})

	return &fixture{
		db:     db,
		svc:    svc,
		node:   node,
		period: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		userID: node.Generate(),
	}
}

func (f *fixture) seed(t *testing.T, essentialTarget, variableSpend, reclaimable, autotransferred string) {
	t.Helper()
	now := f.period.AddDate(0, 0, 14)
	require.NoError(t, f.db.Create(&pipelinedomain.DerivedProfile{
		UserID:           f.userID,
		EFS:              d("1.50"),
		EfficiencyFactor: d("0.90"),
		EssentialTarget:  d(essentialTarget),
		ComputedAt:       now,
	}).Error)
	require.NoError(t, f.db.Create(&perioddomain.PeriodProfile{
		ID:                         f.node.Generate(),
		UserID:                     f.userID,
		Period:                     f.period,
		NetIncome:                  d("60000.00"),
		FixedCommitmentTotal:       d("20000.00"),
		VariableSpendTotal:         d(variableSpend),
		ProjectedReclaimableSalary: d(reclaimable),
		TotalAutotransferred:       d(autotransferred),
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}).Error)
}

func TestInsights_CriticalUsage(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "5000.00", "4800.00", "0", "0")

	cards, err := f.svc.Insights(context.Background(), f.userID, "2025-06")
	require.NoError(t, err)

	require.Len(t, cards, 1)
	assert.Equal(t, insightdomain.SeverityCritical, cards[0].Severity)
	assert.Equal(t, 1, cards[0].Priority)
	assert.True(t, cards[0].UsageRatio.Equal(d("0.96")), "got %s", cards[0].UsageRatio)
}

func TestInsights_WarningUsage(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "5000.00", "4400.00", "0", "0")

	cards, err := f.svc.Insights(context.Background(), f.userID, "2025-06")
	require.NoError(t, err)

	require.Len(t, cards, 1)
	assert.Equal(t, insightdomain.SeverityWarning, cards[0].Severity)
	assert.True(t, cards[0].UsageRatio.Equal(d("0.88")))
}

func TestInsights_ReclaimedFundsFirst(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "5000.00", "4800.00", "3000.00", "500.00")

	cards, err := f.svc.Insights(context.Background(), f.userID, "2025-06")
	require.NoError(t, err)

	require.Len(t, cards, 2)
	// reclaimed funds outranks the spend warning
	assert.Equal(t, 0, cards[0].Priority)
	assert.Equal(t, insightdomain.SeverityInfo, cards[0].Severity)
	assert.True(t, cards[0].Amount.Equal(d("2500.00")))
	assert.Equal(t, insightdomain.SeverityCritical, cards[1].Severity)
}

func TestInsights_QuietMonth(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "5000.00", "2000.00", "400.00", "0")

	cards, err := f.svc.Insights(context.Background(), f.userID, "2025-06")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestInsights_NoDerivedProfile(t *testing.T) {
	f := newFixture(t)

	cards, err := f.svc.Insights(context.Background(), f.userID, "2025-06")
	require.NoError(t, err)
	assert.Empty(t, cards)
}
