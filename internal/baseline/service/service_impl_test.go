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
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	"github.com/fintraq/fintraq/internal/seed"
	transactiondomain "github.com/fintraq/fintraq/internal/transaction/domain"
	transactionrepository "github.com/fintraq/fintraq/internal/transaction/repository"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&baselinedomain.BaselineCategory{}, &transactiondomain.Transaction{}))
	require.NoError(t, seed.EnsureBaselineCategories(db))
	return db
}

func newService(db *gorm.DB) baselinedomain.Service {
	return NewService(Params{
		DB:              db,
		Log:             zap.NewNop(),
		Repo:            baselinerepository.Provide(),
		TransactionRepo: transactionrepository.Provide(),
	})
}

func neutralInputs() baselinedomain.ComputeInputs {
	return baselinedomain.ComputeInputs{
		EFS:              d("1"),
		RegionTier:       householddomain.RegionTier2,
		IncomeBand:       householddomain.IncomeBandMid,
		EfficiencyFactor: d("1"),
		NetIncome:        d("60000.00"),
		FixedTotal:       d("20000.00"),
	}
}

func TestCompute_NeutralMultipliers(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	node, _ := snowflake.NewNode(1)

	set, err := svc.Compute(context.Background(), node.Generate(), time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), neutralInputs())
	require.NoError(t, err)

	byCategory := indexBaselines(set)

	// groceries: 2500 model need, 15% margin haircut
	groceries := byCategory["groceries"]
	assert.True(t, groceries.ModelThreshold.Equal(d("2125.00")), "got %s", groceries.ModelThreshold)
	assert.True(t, groceries.Baseline.Equal(d("2125.00")))

	// no defensible minimum for pure discretionary spend
	entertainment := byCategory["entertainment"]
	assert.True(t, entertainment.Baseline.IsZero())

	// fixed commitments are not part of the variable baseline set
	_, hasRent := byCategory["rent"]
	assert.False(t, hasRent)

	assert.True(t, set.TotalMinimalNeed.IsPositive())
	assert.True(t, set.LeakageThreshold.LessThan(set.TotalMinimalNeed))
	assert.True(t, set.EssentialTarget.IsPositive())
}

func TestCompute_HistoryFloorsModel(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	node, _ := snowflake.NewNode(1)

	userID := node.Generate()
	period := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// the user consistently needs far more groceries than the model says
	for i := 1; i <= 4; i++ {
		require.NoError(t, db.Create(&transactiondomain.Transaction{
			ID:         node.Generate(),
			UserID:     userID,
			OccurredOn: period.AddDate(0, -i, 0).AddDate(0, 0, 9),
			Amount:     d("6000.00"),
			Category:   "groceries",
			Tier:       baselinedomain.TierVariableEssential,
			Direction:  transactiondomain.DirectionDebit,
			CreatedAt:  period,
		}).Error)
	}

	set, err := svc.Compute(context.Background(), userID, period, neutralInputs())
	require.NoError(t, err)

	groceries := indexBaselines(set)["groceries"]
	assert.True(t, groceries.HistoricalMedian.Equal(d("6000.00")), "got %s", groceries.HistoricalMedian)
	assert.True(t, groceries.Baseline.Equal(d("6000.00")))
	assert.True(t, groceries.Baseline.GreaterThan(groceries.ModelThreshold))
}

func TestCompute_CollapsedVariablePool(t *testing.T) {
	db := newTestDB(t)
	svc := newService(db)
	node, _ := snowflake.NewNode(1)

	userID := node.Generate()
	period := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// history still floors the baseline even when the model collapses
	require.NoError(t, db.Create(&transactiondomain.Transaction{
		ID:         node.Generate(),
		UserID:     userID,
		OccurredOn: period.AddDate(0, -1, 0),
		Amount:     d("2000.00"),
		Category:   "groceries",
		Tier:       baselinedomain.TierVariableEssential,
		Direction:  transactiondomain.DirectionDebit,
		CreatedAt:  period,
	}).Error)

	inputs := neutralInputs()
	inputs.NetIncome = d("20000.00")
	inputs.FixedTotal = d("25000.00")

	set, err := svc.Compute(context.Background(), userID, period, inputs)
	require.NoError(t, err)

	byCategory := indexBaselines(set)
	assert.True(t, byCategory["groceries"].ModelThreshold.IsZero())
	assert.True(t, byCategory["groceries"].Baseline.Equal(d("2000.00")))
	assert.True(t, byCategory["utilities"].Baseline.IsZero())
	assert.True(t, set.TotalMinimalNeed.IsZero())
}

func indexBaselines(set *baselinedomain.BaselineSet) map[string]baselinedomain.CategoryBaseline {
	byCategory := make(map[string]baselinedomain.CategoryBaseline, len(set.Categories))
	for _, category := range set.Categories {
		byCategory[category.Category] = category
	}
	return byCategory
}
