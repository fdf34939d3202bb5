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

	benchmarkdomain "github.com/fintraq/fintraq/internal/benchmark/domain"
	"github.com/fintraq/fintraq/internal/benchmark/repository"
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	"github.com/fintraq/fintraq/internal/observability/metrics"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
)

var testMetrics = metrics.New()

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&householddomain.HouseholdProfile{}, &perioddomain.PeriodProfile{}))
	return db
}

func newService(db *gorm.DB) benchmarkdomain.Service {
	return NewService(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Repo:    repository.Provide(),
		Metrics: testMetrics,
	})
}

func seedMember(t *testing.T, db *gorm.DB, node *snowflake.Node, variableSpend string) snowflake.ID {
	t.Helper()
	userID := node.Generate()
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&householddomain.HouseholdProfile{
		ID:               node.Generate(),
		UserID:           userID,
		NumAdults:        1,
		RegionTier:       householddomain.RegionTier2,
		IncomeBand:       householddomain.IncomeBandMid,
		MonthlyNetIncome: decimal.RequireFromString("60000.00"),
		CreatedAt:        now,
		UpdatedAt:        now,
	}).Error)

	require.NoError(t, db.Create(&perioddomain.PeriodProfile{
		ID:                   node.Generate(),
		UserID:               userID,
		Period:               time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		NetIncome:            decimal.RequireFromString("60000.00"),
		FixedCommitmentTotal: decimal.RequireFromString("20000.00"),
		VariableSpendTotal:   decimal.RequireFromString(variableSpend),
		CreatedAt:            now,
		UpdatedAt:            now,
	}).Error)

	return userID
}

func TestComputeEfficiency_FallbackOnSmallCohort(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	node, _ := snowflake.NewNode(1)

	// only 3 peers exist, below the minimum of 5
	for i := 0; i < 3; i++ {
		seedMember(t, db, node, "10000.00")
	}

	result, err := svc.ComputeEfficiency(
		context.Background(),
		node.Generate(),
		decimal.RequireFromString("1"),
		decimal.RequireFromString("20000.00"),
		householddomain.RegionTier2,
	)
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Equal(t, 3, result.CohortSize)
	assert.True(t, result.Factor.Equal(decimal.RequireFromString("0.85")), "got %s", result.Factor)
}

func TestComputeEfficiency_LowestFifthMean(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	node, _ := snowflake.NewNode(1)

	// 10 peers with variable pool 40000 and spend ratios 0.10 .. 1.00
	for i := 1; i <= 10; i++ {
		seedMember(t, db, node, decimal.NewFromInt(int64(4000*i)).String())
	}

	result, err := svc.ComputeEfficiency(
		context.Background(),
		node.Generate(),
		decimal.RequireFromString("1"),
		decimal.RequireFromString("20000.00"),
		householddomain.RegionTier2,
	)
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Equal(t, 10, result.CohortSize)
	// lowest fifth of ratios is {0.10, 0.20}, mean 0.15
	assert.True(t, result.Factor.Equal(decimal.RequireFromString("0.15")), "got %s", result.Factor)
}

func TestComputeEfficiency_FiltersDissimilarHouseholds(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	node, _ := snowflake.NewNode(1)

	// peers exist but none share the subject's family size
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		userID := node.Generate()
		require.NoError(t, db.Create(&householddomain.HouseholdProfile{
			ID:               node.Generate(),
			UserID:           userID,
			NumAdults:        3,
			RegionTier:       householddomain.RegionTier2,
			IncomeBand:       householddomain.IncomeBandMid,
			MonthlyNetIncome: decimal.RequireFromString("60000.00"),
			CreatedAt:        now,
			UpdatedAt:        now,
		}).Error)
		require.NoError(t, db.Create(&perioddomain.PeriodProfile{
			ID:                   node.Generate(),
			UserID:               userID,
			Period:               time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			NetIncome:            decimal.RequireFromString("60000.00"),
			FixedCommitmentTotal: decimal.RequireFromString("20000.00"),
			VariableSpendTotal:   decimal.RequireFromString("10000.00"),
			CreatedAt:            now,
			UpdatedAt:            now,
		}).Error)
	}

	result, err := svc.ComputeEfficiency(
		context.Background(),
		node.Generate(),
		decimal.RequireFromString("1"),
		decimal.RequireFromString("20000.00"),
		householddomain.RegionTier2,
	)
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Equal(t, 0, result.CohortSize)
}
