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
	"github.com/fintraq/fintraq/internal/clock"
	commitmentservice "github.com/fintraq/fintraq/internal/commitment/service"
	"github.com/fintraq/fintraq/internal/config"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	periodrepository "github.com/fintraq/fintraq/internal/period/repository"
	transactiondomain "github.com/fintraq/fintraq/internal/transaction/domain"
	transactionrepository "github.com/fintraq/fintraq/internal/transaction/repository"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type fixture struct {
	db     *gorm.DB
	svc    perioddomain.Service
	node   *snowflake.Node
	userID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&perioddomain.PeriodProfile{},
		&transactiondomain.Transaction{},
	))

	node, _ := snowflake.NewNode(1)
	transactionRepo := transactionrepository.Provide()
	projector := commitmentservice.NewService(commitmentservice.Params{
		DB:              db,
		Log:             zap.NewNop(),
		TransactionRepo: transactionRepo,
	})
	svc := NewService(Params{
		Config:    config.Config{DefaultTaxHeadroomAnnual: "150000.00"},
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
		Repo:      periodrepository.Provide(),
		Projector: projector,
	})

	return &fixture{db: db, svc: svc, node: node, userID: node.Generate()}
}

func (f *fixture) seedFixedSpend(t *testing.T, category string, months []time.Time, amount string) {
	t.Helper()
	for _, month := range months {
		require.NoError(t, f.db.Create(&transactiondomain.Transaction{
			ID:         f.node.Generate(),
			UserID:     f.userID,
			OccurredOn: month.AddDate(0, 0, 4),
			Amount:     d(amount),
			Category:   category,
			Tier:       baselinedomain.TierFixedEssential,
			Direction:  transactiondomain.DirectionDebit,
			CreatedAt:  month,
		}).Error)
	}
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestOpen_CreatesProfileWithDefaults(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:    "2025-06",
		NetIncome: "60000.00",
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-06", resp.Period)
	assert.True(t, resp.NetIncome.Equal(d("60000.00")))
	// no history, projection comes back empty
	assert.True(t, resp.FixedCommitmentTotal.IsZero())
	assert.True(t, resp.TaxHeadroomRemaining.Equal(d("150000.00")))
	assert.True(t, resp.TotalLeakage.IsZero())
}

func TestOpen_ProjectsFixedCommitments(t *testing.T) {
	f := newFixture(t)
	f.seedFixedSpend(t, "rent", []time.Time{
		month(2025, time.February), month(2025, time.March),
		month(2025, time.April), month(2025, time.May),
	}, "15000.00")
	// a one-off does not qualify as recurring
	f.seedFixedSpend(t, "insurance", []time.Time{month(2025, time.May)}, "9000.00")

	resp, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:    "2025-06",
		NetIncome: "60000.00",
	})
	require.NoError(t, err)
	assert.True(t, resp.FixedCommitmentTotal.Equal(d("15000.00")), "got %s", resp.FixedCommitmentTotal)
}

func TestOpen_ExplicitFixedTotalWins(t *testing.T) {
	f := newFixture(t)
	f.seedFixedSpend(t, "rent", []time.Time{
		month(2025, time.April), month(2025, time.May),
	}, "15000.00")

	resp, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:               "2025-06",
		NetIncome:            "60000.00",
		FixedCommitmentTotal: "22000.00",
	})
	require.NoError(t, err)
	assert.True(t, resp.FixedCommitmentTotal.Equal(d("22000.00")))
}

func TestOpen_CarriesHeadroomForwardWithinYear(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:    "2025-05",
		NetIncome: "60000.00",
	})
	require.NoError(t, err)

	// a consent during May consumed part of the annual capacity
	may := month(2025, time.May)
	require.NoError(t, periodrepository.Provide().ApplyConsent(
		context.Background(), f.db, f.userID, may, 0, perioddomain.ConsentUpdate{
			AutotransferredDelta: d("30000.00"),
			TaxHeadroomDelta:     d("30000.00"),
		}))

	resp, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:    "2025-06",
		NetIncome: "60000.00",
	})
	require.NoError(t, err)
	assert.True(t, resp.TaxHeadroomRemaining.Equal(d("120000.00")), "got %s", resp.TaxHeadroomRemaining)
}

func TestOpen_ResetsHeadroomInNewYear(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:    "2024-12",
		NetIncome: "60000.00",
	})
	require.NoError(t, err)

	dec := month(2024, time.December)
	require.NoError(t, periodrepository.Provide().ApplyConsent(
		context.Background(), f.db, f.userID, dec, 0, perioddomain.ConsentUpdate{
			AutotransferredDelta: d("30000.00"),
			TaxHeadroomDelta:     d("30000.00"),
		}))

	resp, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:    "2025-01",
		NetIncome: "60000.00",
	})
	require.NoError(t, err)
	assert.True(t, resp.TaxHeadroomRemaining.Equal(d("150000.00")))
}

func TestOpen_RefreshKeepsComputedTotals(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:    "2025-06",
		NetIncome: "60000.00",
	})
	require.NoError(t, err)

	june := month(2025, time.June)
	require.NoError(t, periodrepository.Provide().ApplyComputation(
		context.Background(), f.db, f.userID, june, 0, perioddomain.ComputationUpdate{
			VariableSpendTotal:         d("18000.00"),
			TotalLeakage:               d("4000.00"),
			ProjectedReclaimableSalary: d("4000.00"),
		}))

	resp, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:    "2025-06",
		NetIncome: "65000.00",
	})
	require.NoError(t, err)

	assert.True(t, resp.NetIncome.Equal(d("65000.00")))
	assert.True(t, resp.VariableSpendTotal.Equal(d("18000.00")))
	assert.True(t, resp.TotalLeakage.Equal(d("4000.00")))
}

func TestOpen_RejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:    "June 2025",
		NetIncome: "60000.00",
	})
	assert.ErrorIs(t, err, perioddomain.ErrInvalidPeriod)

	_, err = f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
		Period:    "2025-06",
		NetIncome: "-1",
	})
	assert.ErrorIs(t, err, perioddomain.ErrInvalidAmount)
}

func TestGetAndLatest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), f.userID, "2025-06")
	assert.ErrorIs(t, err, perioddomain.ErrNotFound)
	_, err = f.svc.Latest(context.Background(), f.userID)
	assert.ErrorIs(t, err, perioddomain.ErrNotFound)

	for _, period := range []string{"2025-05", "2025-06"} {
		_, err := f.svc.Open(context.Background(), f.userID, perioddomain.OpenRequest{
			Period:    period,
			NetIncome: "60000.00",
		})
		require.NoError(t, err)
	}

	got, err := f.svc.Get(context.Background(), f.userID, "2025-05")
	require.NoError(t, err)
	assert.Equal(t, "2025-05", got.Period)

	latest, err := f.svc.Latest(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, "2025-06", latest.Period)
}
