package repository

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
	"gorm.io/gorm"

	"github.com/fintraq/fintraq/internal/period/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PeriodProfile{}))
	return db
}

func seedProfile(t *testing.T, db *gorm.DB, repo domain.Repository, node *snowflake.Node, userID snowflake.ID, period time.Time) *domain.PeriodProfile {
	t.Helper()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	profile := &domain.PeriodProfile{
		ID:                         node.Generate(),
		UserID:                     userID,
		Period:                     domain.Normalize(period),
		NetIncome:                  decimal.RequireFromString("60000.00"),
		FixedCommitmentTotal:       decimal.RequireFromString("20000.00"),
		VariableSpendTotal:         decimal.Zero,
		TotalLeakage:               decimal.Zero,
		ProjectedReclaimableSalary: decimal.Zero,
		TotalAutotransferred:       decimal.Zero,
		TaxHeadroomRemaining:       decimal.RequireFromString("5000.00"),
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	require.NoError(t, repo.Insert(context.Background(), db, profile))
	return profile
}

func TestApplyComputation_GuardedUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	userID := node.Generate()
	period := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedProfile(t, db, repo, node, userID, period)

	update := domain.ComputationUpdate{
		VariableSpendTotal:         decimal.RequireFromString("32000.00"),
		TotalLeakage:               decimal.RequireFromString("7000.00"),
		ProjectedReclaimableSalary: decimal.RequireFromString("7000.00"),
	}
	require.NoError(t, repo.ApplyComputation(ctx, db, userID, period, 0, update))

	stored, err := repo.FindByUserPeriod(ctx, db, userID, period)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.VariableSpendTotal.Equal(update.VariableSpendTotal))
	assert.True(t, stored.TotalLeakage.Equal(update.TotalLeakage))
	assert.Equal(t, int64(1), stored.LockVersion)
}

func TestApplyComputation_VersionConflict(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	userID := node.Generate()
	period := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedProfile(t, db, repo, node, userID, period)

	update := domain.ComputationUpdate{
		VariableSpendTotal:         decimal.RequireFromString("1000.00"),
		TotalLeakage:               decimal.Zero,
		ProjectedReclaimableSalary: decimal.Zero,
	}
	require.NoError(t, repo.ApplyComputation(ctx, db, userID, period, 0, update))

	// second writer still holds version 0
	err := repo.ApplyComputation(ctx, db, userID, period, 0, update)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	// retrying with the fresh version succeeds
	fresh, err := repo.FindByUserPeriod(ctx, db, userID, period)
	require.NoError(t, err)
	assert.NoError(t, repo.ApplyComputation(ctx, db, userID, period, fresh.LockVersion, update))
}

func TestApplyConsent_MovesTotals(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	userID := node.Generate()
	period := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedProfile(t, db, repo, node, userID, period)

	update := domain.ConsentUpdate{
		AutotransferredDelta: decimal.RequireFromString("4500.00"),
		TaxHeadroomDelta:     decimal.RequireFromString("4000.00"),
	}
	require.NoError(t, repo.ApplyConsent(ctx, db, userID, period, 0, update))

	stored, err := repo.FindByUserPeriod(ctx, db, userID, period)
	require.NoError(t, err)
	assert.True(t, stored.TotalAutotransferred.Equal(decimal.RequireFromString("4500.00")))
	assert.True(t, stored.TaxHeadroomRemaining.Equal(decimal.RequireFromString("1000.00")))
	assert.Equal(t, int64(1), stored.LockVersion)
}

func TestFindByUserPeriod_Missing(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)

	profile, err := repo.FindByUserPeriod(context.Background(), db, node.Generate(), time.Now())
	assert.NoError(t, err)
	assert.Nil(t, profile)
}

func TestFindLatestByUser(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	userID := node.Generate()
	seedProfile(t, db, repo, node, userID, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	seedProfile(t, db, repo, node, userID, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	seedProfile(t, db, repo, node, userID, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))

	latest, err := repo.FindLatestByUser(ctx, db, userID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2025-06-01", domain.FormatPeriod(latest.Period))
}
