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

	baselinedomain "github.com/fintraq/fintraq/internal/baseline/domain"
	baselinerepository "github.com/fintraq/fintraq/internal/baseline/repository"
	baselineservice "github.com/fintraq/fintraq/internal/baseline/service"
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	householdrepository "github.com/fintraq/fintraq/internal/household/repository"
	leakagedomain "github.com/fintraq/fintraq/internal/leakage/domain"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	periodrepository "github.com/fintraq/fintraq/internal/period/repository"
	pipelinedomain "github.com/fintraq/fintraq/internal/pipeline/domain"
	pipelinerepository "github.com/fintraq/fintraq/internal/pipeline/repository"
	"github.com/fintraq/fintraq/internal/seed"
	transactiondomain "github.com/fintraq/fintraq/internal/transaction/domain"
	transactionrepository "github.com/fintraq/fintraq/internal/transaction/repository"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type fixture struct {
	db     *gorm.DB
	svc    leakagedomain.Service
	node   *snowflake.Node
	period time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&householddomain.HouseholdProfile{},
		&perioddomain.PeriodProfile{},
		&pipelinedomain.DerivedProfile{},
		&baselinedomain.BaselineCategory{},
		&transactiondomain.Transaction{},
	))
	require.NoError(t, seed.EnsureBaselineCategories(db))

	transactionRepo := transactionrepository.Provide()
	baselineSvc := baselineservice.NewService(baselineservice.Params{
		DB:              db,
		Log:             zap.NewNop(),
		Repo:            baselinerepository.Provide(),
		TransactionRepo: transactionRepo,
	})
	svc := NewService(Params{
		DB:              db,
		Log:             zap.NewNop(),
		HouseholdRepo:   householdrepository.Provide(),
		PeriodRepo:      periodrepository.Provide(),
		DerivedRepo:     pipelinerepository.Provide(),
		Baseline:        baselineSvc,
		TransactionRepo: transactionRepo,
	})

	node, _ := snowflake.NewNode(1)
	return &fixture{
		db:     db,
		svc:    svc,
		node:   node,
		period: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) seedUser(t *testing.T, netIncome, fixedTotal, taxHeadroom string) snowflake.ID {
	t.Helper()
	userID := f.node.Generate()
	now := f.period.AddDate(0, 0, 14)

	require.NoError(t, f.db.Create(&householddomain.HouseholdProfile{
		ID:               f.node.Generate(),
		UserID:           userID,
		NumAdults:        1,
		RegionTier:       householddomain.RegionTier2,
		IncomeBand:       householddomain.IncomeBandMid,
		MonthlyNetIncome: d(netIncome),
		CreatedAt:        now,
		UpdatedAt:        now,
	}).Error)

	require.NoError(t, f.db.Create(&perioddomain.PeriodProfile{
		ID:                   f.node.Generate(),
		UserID:               userID,
		Period:               f.period,
		NetIncome:            d(netIncome),
		FixedCommitmentTotal: d(fixedTotal),
		TaxHeadroomRemaining: d(taxHeadroom),
		CreatedAt:            now,
		UpdatedAt:            now,
	}).Error)

	require.NoError(t, f.db.Create(&pipelinedomain.DerivedProfile{
		UserID:           userID,
		EFS:              d("1"),
		EfficiencyFactor: d("1"),
		EssentialTarget:  d("5610.00"),
		ComputedAt:       now,
	}).Error)

	return userID
}

func (f *fixture) seedSpend(t *testing.T, userID snowflake.ID, category string, tier baselinedomain.SpendTier, amount string) {
	t.Helper()
	require.NoError(t, f.db.Create(&transactiondomain.Transaction{
		ID:         f.node.Generate(),
		UserID:     userID,
		OccurredOn: f.period.AddDate(0, 0, 9),
		Amount:     d(amount),
		Category:   category,
		Tier:       tier,
		Direction:  transactiondomain.DirectionDebit,
		CreatedAt:  f.period,
	}).Error)
}

func TestCompute_TierRules(t *testing.T) {
	f := newFixture(t)
	userID := f.seedUser(t, "60000.00", "20000.00", "0")

	// groceries baseline is 2125 (2500 less the 15% margin)
	f.seedSpend(t, userID, "groceries", baselinedomain.TierVariableEssential, "3125.00")
	// pure discretionary spend leaks in full
	f.seedSpend(t, userID, "shopping", baselinedomain.TierPureDiscretionary, "4000.00")
	// spend under baseline does not leak
	f.seedSpend(t, userID, "utilities", baselinedomain.TierVariableEssential, "500.00")

	report, err := f.svc.Compute(context.Background(), userID, "2025-06")
	require.NoError(t, err)

	buckets := indexBuckets(report)
	assert.True(t, buckets["groceries"].Leak.Equal(d("1000.00")), "got %s", buckets["groceries"].Leak)
	assert.True(t, buckets["shopping"].Leak.Equal(d("4000.00")))
	assert.True(t, buckets["utilities"].Leak.IsZero())

	assert.True(t, report.VariableSpendTotal.Equal(d("7625.00")), "got %s", report.VariableSpendTotal)
	assert.True(t, report.TotalLeakage.Equal(d("5000.00")), "got %s", report.TotalLeakage)
	assert.True(t, report.ProjectedReclaimableSalary.Equal(d("5000.00")))
}

func TestCompute_ReclaimableClamp(t *testing.T) {
	f := newFixture(t)
	// variable pool is 40000; the protected floor leaves at most 25000
	userID := f.seedUser(t, "60000.00", "20000.00", "0")

	f.seedSpend(t, userID, "shopping", baselinedomain.TierPureDiscretionary, "38000.00")

	report, err := f.svc.Compute(context.Background(), userID, "2025-06")
	require.NoError(t, err)

	assert.True(t, report.TotalLeakage.Equal(d("38000.00")))
	assert.True(t, report.ProjectedReclaimableSalary.Equal(d("25000.00")),
		"got %s", report.ProjectedReclaimableSalary)
}

func TestCompute_TaxHeadroomBucket(t *testing.T) {
	f := newFixture(t)
	userID := f.seedUser(t, "60000.00", "20000.00", "5000.00")

	report, err := f.svc.Compute(context.Background(), userID, "2025-06")
	require.NoError(t, err)

	buckets := indexBuckets(report)
	headroom, ok := buckets[leakagedomain.TaxHeadroomCategory]
	require.True(t, ok)
	assert.True(t, headroom.Leak.Equal(d("5000.00")))
	assert.True(t, report.TotalLeakage.Equal(d("5000.00")))
}

func TestCompute_PersistsPeriodTotals(t *testing.T) {
	f := newFixture(t)
	userID := f.seedUser(t, "60000.00", "20000.00", "0")
	f.seedSpend(t, userID, "shopping", baselinedomain.TierPureDiscretionary, "3000.00")

	_, err := f.svc.Compute(context.Background(), userID, "2025-06")
	require.NoError(t, err)

	stored, err := periodrepository.Provide().FindByUserPeriod(context.Background(), f.db, userID, f.period)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.TotalLeakage.Equal(d("3000.00")))
	assert.True(t, stored.ProjectedReclaimableSalary.Equal(d("3000.00")))
	assert.Equal(t, int64(1), stored.LockVersion)
}

func TestCompute_RequiresDerivedProfile(t *testing.T) {
	f := newFixture(t)
	userID := f.node.Generate()

	_, err := f.svc.Compute(context.Background(), userID, "2025-06")
	assert.ErrorIs(t, err, pipelinedomain.ErrDerivedProfileMissing)
}

func indexBuckets(report *leakagedomain.Report) map[string]leakagedomain.Bucket {
	buckets := make(map[string]leakagedomain.Bucket, len(report.Buckets))
	for _, bucket := range report.Buckets {
		buckets[bucket.Category] = bucket
	}
	return buckets
}
