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

	"github.com/fintraq/fintraq/internal/clock"
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	householdrepository "github.com/fintraq/fintraq/internal/household/repository"
)

func newTestService(t *testing.T) (householddomain.Service, snowflake.ID) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&householddomain.HouseholdProfile{}))

	node, _ := snowflake.NewNode(1)
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  householdrepository.Provide(),
	})
	return svc, node.Generate()
}

func TestUpsert_CreateThenUpdate(t *testing.T) {
	svc, userID := newTestService(t)

	resp, err := svc.Upsert(context.Background(), userID, householddomain.UpsertRequest{
		NumAdults:        2,
		Dependents6To17:  1,
		RegionTier:       "T1",
		IncomeBand:       "mid",
		MonthlyNetIncome: "60000.00",
	})
	require.NoError(t, err)

	assert.Equal(t, userID.String(), resp.UserID)
	assert.True(t, resp.EFS.Equal(decimal.RequireFromString("1.80")), "got %s", resp.EFS)

	// a second dependent arrives and the family moves
	resp, err = svc.Upsert(context.Background(), userID, householddomain.UpsertRequest{
		NumAdults:        2,
		DependentsUnder6: 1,
		Dependents6To17:  1,
		RegionTier:       "T2",
		IncomeBand:       "mid",
		MonthlyNetIncome: "65000.00",
	})
	require.NoError(t, err)

	assert.Equal(t, householddomain.RegionTier2, resp.RegionTier)
	assert.True(t, resp.EFS.Equal(decimal.RequireFromString("2.00")))
	assert.True(t, resp.MonthlyNetIncome.Equal(decimal.RequireFromString("65000.00")))

	got, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, got.EFS.Equal(resp.EFS))
}

func TestUpsert_Validation(t *testing.T) {
	svc, userID := newTestService(t)

	tests := []struct {
		name string
		req  householddomain.UpsertRequest
		want error
	}{
		{
			name: "no adults",
			req: householddomain.UpsertRequest{
				NumAdults: 0, RegionTier: "T1", IncomeBand: "mid", MonthlyNetIncome: "60000",
			},
			want: householddomain.ErrInvalidHouseholdCounts,
		},
		{
			name: "negative dependents",
			req: householddomain.UpsertRequest{
				NumAdults: 1, Dependents6To17: -1, RegionTier: "T1", IncomeBand: "mid", MonthlyNetIncome: "60000",
			},
			want: householddomain.ErrInvalidHouseholdCounts,
		},
		{
			name: "unknown region tier",
			req: householddomain.UpsertRequest{
				NumAdults: 1, RegionTier: "T9", IncomeBand: "mid", MonthlyNetIncome: "60000",
			},
			want: householddomain.ErrInvalidRegionTier,
		},
		{
			name: "unknown income band",
			req: householddomain.UpsertRequest{
				NumAdults: 1, RegionTier: "T1", IncomeBand: "platinum", MonthlyNetIncome: "60000",
			},
			want: householddomain.ErrInvalidIncomeBand,
		},
		{
			name: "negative income",
			req: householddomain.UpsertRequest{
				NumAdults: 1, RegionTier: "T1", IncomeBand: "mid", MonthlyNetIncome: "-5",
			},
			want: householddomain.ErrInvalidNetIncome,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upsert(context.Background(), userID, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGet_Missing(t *testing.T) {
	svc, userID := newTestService(t)

	_, err := svc.Get(context.Background(), userID)
	assert.ErrorIs(t, err, householddomain.ErrNotFound)
}
