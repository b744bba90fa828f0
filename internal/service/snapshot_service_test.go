package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/testutil"
)

var usdtwd = model.FXKey("USD", "TWD")

// TestSnapshotService_EnsureSnapshotsForDate tests same-day snapshot
// chaining and idempotency.
//
// WHY: Time-weighted returns are only as good as the boundaries they link.
// Same-day snapshots must chain to the end-of-day value, be stored
// atomically, and be reused without another market data lookup.
func TestSnapshotService_EnsureSnapshotsForDate(t *testing.T) {
	ctx := context.Background()

	t.Run("chains same-day transactions and reuses them", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		day := testutil.Day(t, "2024-01-02")
		provider := testutil.NewFakeProvider().
			WithValue(aapl, day, "105").
			WithValue(usdtwd, day, "31")
		svc := testutil.NewTestServices(t, db, provider)

		p := testutil.NewPortfolio().Build(t, db)
		first := testutil.NewTransaction(p.ID).WithDate(day).WithExchangeRate("30").Build(t, db)
		second := testutil.NewTransaction(p.ID).WithDate(day).WithQuantity("5").WithUnitPrice("102").WithExchangeRate("30").Build(t, db)

		result, err := svc.Snapshots.EnsureSnapshotsForDate(ctx, p.ID, day)
		require.NoError(t, err)
		require.False(t, result.Incomplete)
		require.Len(t, result.Snapshots, 2)

		s := result.Snapshots
		assert.Equal(t, first.ID, s[0].TransactionID)
		assert.Equal(t, second.ID, s[1].TransactionID)
		assert.True(t, s[0].ValueBeforeHome.IsZero())
		assert.Equal(t, "48825", s[0].ValueAfterHome.String())
		assert.Equal(t, "1575", s[0].ValueAfterSource.String())
		assert.True(t, s[0].ValueAfterHome.Equal(s[1].ValueBeforeHome))
		assert.True(t, s[0].ValueAfterSource.Equal(s[1].ValueBeforeSource))
		assert.True(t, s[1].ValueAfterHome.Equal(s[1].ValueBeforeHome))
		testutil.AssertRowCount(t, db, "transaction_snapshot", 2)

		queries := provider.QueryCount()
		again, err := svc.Snapshots.EnsureSnapshotsForDate(ctx, p.ID, day)
		require.NoError(t, err)
		assert.True(t, again.Reused)
		assert.Equal(t, queries, provider.QueryCount())
		assert.Equal(t, s[0].ID, again.Snapshots[0].ID)
		testutil.AssertRowCount(t, db, "transaction_snapshot", 2)
	})

	t.Run("incomplete valuation writes nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		day := testutil.Day(t, "2024-01-02")
		provider := testutil.NewFakeProvider().WithValue(aapl, day, "105")
		svc := testutil.NewTestServices(t, db, provider)

		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(day).WithExchangeRate("30").Build(t, db)

		result, err := svc.Snapshots.EnsureSnapshotsForDate(ctx, p.ID, day)
		require.NoError(t, err)
		assert.True(t, result.Incomplete)
		assert.Equal(t, []string{"USDTWD"}, result.MissingRates)
		assert.Empty(t, result.Snapshots)
		testutil.AssertRowCount(t, db, "transaction_snapshot", 0)
	})

	t.Run("rate limiting aborts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		day := testutil.Day(t, "2024-01-02")
		provider := testutil.NewFakeProvider().WithError(apperrors.ErrRateLimited)
		svc := testutil.NewTestServices(t, db, provider)

		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(day).WithExchangeRate("30").Build(t, db)

		_, err := svc.Snapshots.EnsureSnapshotsForDate(ctx, p.ID, day)
		assert.ErrorIs(t, err, apperrors.ErrRateLimited)
		testutil.AssertRowCount(t, db, "transaction_snapshot", 0)
	})

	t.Run("day without transactions has no snapshots", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())
		p := testutil.NewPortfolio().Build(t, db)

		result, err := svc.Snapshots.EnsureSnapshotsForDate(ctx, p.ID, testutil.Day(t, "2024-01-02"))
		require.NoError(t, err)
		assert.Empty(t, result.Snapshots)
	})

	t.Run("unknown portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())

		_, err := svc.Snapshots.EnsureSnapshotsForDate(ctx, testutil.MakeID(), testutil.Day(t, "2024-01-02"))
		assert.ErrorIs(t, err, apperrors.ErrPortfolioNotFound)
	})
}

// TestSnapshotService_CurrentDay tests snapshots of a day that has not
// closed yet.
//
// WHY: Today's value comes from live quotes that keep moving. Storing it
// would freeze an intraday price into the history, so the day must be
// recomputed from the closing price once it is over.
func TestSnapshotService_CurrentDay(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	day := model.Day(testutil.Today)
	provider := testutil.NewFakeProvider().
		WithLatest(aapl, "101").
		WithLatest(usdtwd, "32").
		WithValue(aapl, day, "150").
		WithValue(usdtwd, day, "31")
	svc := testutil.NewTestServices(t, db, provider)

	p := testutil.NewPortfolio().Build(t, db)
	testutil.NewTransaction(p.ID).WithDate(day).WithExchangeRate("30").Build(t, db)

	live, err := svc.Snapshots.EnsureSnapshotsForDate(ctx, p.ID, day)
	require.NoError(t, err)
	assert.True(t, live.Provisional)
	assert.False(t, live.Reused)
	require.Len(t, live.Snapshots, 1)
	assert.Equal(t, "1010", live.Snapshots[0].ValueAfterSource.String())
	testutil.AssertRowCount(t, db, "transaction_snapshot", 0)

	again, err := svc.Snapshots.EnsureSnapshotsForDate(ctx, p.ID, day)
	require.NoError(t, err)
	assert.True(t, again.Provisional)
	assert.False(t, again.Reused)

	svc.Cache.WithClock(func() time.Time { return testutil.Today.AddDate(0, 0, 2) })

	closed, err := svc.Snapshots.EnsureSnapshotsForDate(ctx, p.ID, day)
	require.NoError(t, err)
	assert.False(t, closed.Provisional)
	assert.False(t, closed.Reused)
	require.Len(t, closed.Snapshots, 1)
	assert.Equal(t, "1500", closed.Snapshots[0].ValueAfterSource.String())
	assert.Equal(t, "46500", closed.Snapshots[0].ValueAfterHome.String())
	testutil.AssertRowCount(t, db, "transaction_snapshot", 1)
}

// TestSnapshotService_BackfillPortfolio tests the whole-history backfill.
//
// WHY: The scheduler relies on backfill being resumable: a second run must
// reuse everything the first one stored.
func TestSnapshotService_BackfillPortfolio(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	d1 := testutil.Day(t, "2024-01-02")
	d2 := testutil.Day(t, "2024-02-01")
	provider := testutil.NewFakeProvider().
		WithValue(aapl, d1, "100").
		WithValue(aapl, d2, "110").
		WithValue(usdtwd, d1, "30").
		WithValue(usdtwd, d2, "31")
	svc := testutil.NewTestServices(t, db, provider)

	p := testutil.NewPortfolio().Build(t, db)
	testutil.NewTransaction(p.ID).WithDate(d1).WithExchangeRate("30").Build(t, db)
	testutil.NewTransaction(p.ID).WithDate(d2).WithExchangeRate("31").Build(t, db)

	result, err := svc.Snapshots.BackfillPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Dates)
	assert.Equal(t, 2, result.Written)

	result, err = svc.Snapshots.BackfillPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Reused)
	assert.Zero(t, result.Written)
	testutil.AssertRowCount(t, db, "transaction_snapshot", 2)
}
