package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/service"
	"github.com/ndewijer/portfolio-performance/internal/testutil"
)

// TestPerformanceService_GetPositions tests valuation of open positions.
//
// WHY: A purchase funded from a bound currency ledger carries no explicit
// rate; its home cost must come from the ledger's average cost, or home
// P&L would silently be wrong.
func TestPerformanceService_GetPositions(t *testing.T) {
	ctx := context.Background()

	t.Run("ledger-implied home cost", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		asOf := testutil.Day(t, "2023-06-30")
		provider := testutil.NewFakeProvider().
			WithValue(aapl, asOf, "120").
			WithValue(usdtwd, asOf, "31")
		svc := testutil.NewTestServices(t, db, provider)

		ledger := testutil.NewLedger().
			ExchangeBuy(testutil.Day(t, "2022-12-01"), "1000", "31.5").
			Build(t, db)
		p := testutil.NewPortfolio().WithBoundLedger(ledger.ID).Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2023-01-03")).Build(t, db)

		report, err := svc.Performance.GetPositions(ctx, p.ID, asOf)
		require.NoError(t, err)
		require.Len(t, report.Positions, 1)
		assert.True(t, report.Complete)

		pos := report.Positions[0]
		home, ok := pos.TotalCostHome.Get()
		require.True(t, ok)
		assert.Equal(t, "31500", home.String())

		pnlSource, ok := pos.UnrealizedPnLSource.Get()
		require.True(t, ok)
		assert.Equal(t, "200", pnlSource.String())

		pnlHome, ok := pos.UnrealizedPnLHome.Get()
		require.True(t, ok)
		assert.Equal(t, "5700", pnlHome.String())
		assert.Equal(t, "$1,200.00", pos.Display.MarketValue)
	})

	t.Run("missing price is reported, not zero-filled", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2023-01-03")).WithExchangeRate("30").Build(t, db)

		report, err := svc.Performance.GetPositions(ctx, p.ID, testutil.Day(t, "2023-06-30"))
		require.NoError(t, err)
		assert.False(t, report.Complete)
		assert.Equal(t, []string{"AAPL.US"}, report.MissingPrices)
		assert.False(t, report.Positions[0].UnrealizedPnLSource.IsKnown())
	})

	t.Run("rate limited", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider().WithError(apperrors.ErrRateLimited))
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2023-01-03")).Build(t, db)

		_, err := svc.Performance.GetPositions(ctx, p.ID, testutil.Day(t, "2023-06-30"))
		assert.ErrorIs(t, err, apperrors.ErrRateLimited)
	})
}

// TestPerformanceService_CalculateXIRR tests the money-weighted return.
//
// WHY: XIRR is the headline figure. It must agree in both currencies when
// the exchange rate is flat, and must list rather than guess missing rates.
func TestPerformanceService_CalculateXIRR(t *testing.T) {
	ctx := context.Background()

	t.Run("ten percent over one year", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		asOf := testutil.Day(t, "2024-01-01")
		provider := testutil.NewFakeProvider().
			WithValue(aapl, asOf, "110").
			WithValue(usdtwd, asOf, "30")
		svc := testutil.NewTestServices(t, db, provider)

		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2023-01-01")).WithExchangeRate("30").Build(t, db)

		for _, currency := range []service.ReportCurrency{service.CurrencyHome, service.CurrencySource} {
			result, err := svc.Performance.CalculateXIRR(ctx, p.ID, asOf, currency)
			require.NoError(t, err)
			require.NotNil(t, result.Rate, currency)
			assert.InDelta(t, 0.10, *result.Rate, 1e-6, currency)
			assert.Equal(t, 2, result.CashFlowCount)
			assert.False(t, result.IsShortPeriod)
			assert.Empty(t, result.MissingExchangeRates)
		}
	})

	t.Run("missing rate is listed by transaction date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		asOf := testutil.Day(t, "2023-02-01")
		provider := testutil.NewFakeProvider().
			WithValue(aapl, asOf, "110").
			WithValue(usdtwd, asOf, "30")
		svc := testutil.NewTestServices(t, db, provider)

		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2023-01-01")).Build(t, db)

		result, err := svc.Performance.CalculateXIRR(ctx, p.ID, asOf, service.CurrencyHome)
		require.NoError(t, err)
		assert.Equal(t, []string{"2023-01-01"}, result.MissingExchangeRates)
		assert.Empty(t, result.MissingRates)
		assert.Nil(t, result.Rate)
		assert.True(t, result.IsShortPeriod)
	})

	t.Run("missing dates are distinct and valuation pairs kept apart", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		asOf := testutil.Day(t, "2023-06-30")
		provider := testutil.NewFakeProvider().WithValue(aapl, asOf, "110")
		svc := testutil.NewTestServices(t, db, provider)

		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2023-01-05")).Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2023-01-02")).Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2023-01-02")).WithQuantity("5").Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2023-01-03")).WithExchangeRate("30").Build(t, db)

		result, err := svc.Performance.CalculateXIRR(ctx, p.ID, asOf, service.CurrencyHome)
		require.NoError(t, err)
		assert.Equal(t, []string{"2023-01-02", "2023-01-05"}, result.MissingExchangeRates)
		assert.Equal(t, []string{"USDTWD"}, result.MissingRates)
		assert.Empty(t, result.MissingPrices)
		assert.Equal(t, 1, result.CashFlowCount)
		assert.Nil(t, result.Rate)
	})

	t.Run("empty portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())
		p := testutil.NewPortfolio().Build(t, db)

		result, err := svc.Performance.CalculateXIRR(ctx, p.ID, testutil.Day(t, "2024-01-01"), "")
		require.NoError(t, err)
		assert.Nil(t, result.Rate)
		assert.Nil(t, result.EarliestDate)
		assert.Zero(t, result.CashFlowCount)
	})
}

// TestPerformanceService_CalculateTWR tests time-weighted and Modified
// Dietz returns over a range with two purchases.
//
// WHY: Both measures depend on the stored snapshots. A second calculation
// over the same range must reuse them without touching the upstream.
func TestPerformanceService_CalculateTWR(t *testing.T) {
	ctx := context.Background()
	from := testutil.Day(t, "2024-01-01")
	to := testutil.Day(t, "2024-03-01")
	d1 := testutil.Day(t, "2024-01-10")
	d2 := testutil.Day(t, "2024-02-01")

	setup := func(t *testing.T, provider *testutil.FakeProvider) (*testutil.Services, string) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, provider)
		p := testutil.NewPortfolio().WithCurrencies("USD", "USD").Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(d1).Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(d2).WithUnitPrice("120").Build(t, db)
		return svc, p.ID
	}

	t.Run("links sub-periods", func(t *testing.T) {
		provider := testutil.NewFakeProvider().
			WithValue(aapl, d1, "100").
			WithValue(aapl, d2, "120").
			WithValue(aapl, to, "132")
		svc, portfolioID := setup(t, provider)

		result, err := svc.Performance.CalculateTWR(ctx, portfolioID, from, to)
		require.NoError(t, err)
		assert.Empty(t, result.IncompleteDates)
		assert.Equal(t, 2, result.SnapshotCount)

		require.NotNil(t, result.TWRHome)
		assert.InDelta(t, 0.32, *result.TWRHome, 1e-9)
		require.NotNil(t, result.TWRSource)
		assert.InDelta(t, 0.32, *result.TWRSource, 1e-9)

		// 440 gain over 1000×51/60 + 1200×29/60 weighted capital
		require.NotNil(t, result.ModifiedDietzHome)
		assert.InDelta(t, 440.0/1430.0, *result.ModifiedDietzHome, 1e-9)
		require.NotNil(t, result.AnnualizedTWRHome)

		queries := provider.QueryCount()
		_, err = svc.Performance.CalculateTWR(ctx, portfolioID, from, to)
		require.NoError(t, err)
		assert.Equal(t, queries, provider.QueryCount())
	})

	t.Run("incomplete day yields no rate", func(t *testing.T) {
		provider := testutil.NewFakeProvider().
			WithValue(aapl, d1, "100").
			WithValue(aapl, to, "132")
		svc, portfolioID := setup(t, provider)

		result, err := svc.Performance.CalculateTWR(ctx, portfolioID, from, to)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-02-01"}, result.IncompleteDates)
		assert.Equal(t, []string{"AAPL.US"}, result.MissingPrices)
		assert.Nil(t, result.TWRHome)
		assert.Nil(t, result.ModifiedDietzHome)
	})

	t.Run("invalid range", func(t *testing.T) {
		svc, portfolioID := setup(t, testutil.NewFakeProvider())

		_, err := svc.Performance.CalculateTWR(ctx, portfolioID, to, from)
		assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)
	})
}

// TestPerformanceService_NetWorthSeries tests period-end valuations.
//
// WHY: The series feeds charts; every period end must be present even when
// its valuation is incomplete.
func TestPerformanceService_NetWorthSeries(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	provider := testutil.NewFakeProvider().
		WithValue(aapl, testutil.Day(t, "2024-01-31"), "110").
		WithValue(aapl, testutil.Day(t, "2024-03-01"), "132")
	svc := testutil.NewTestServices(t, db, provider)

	p := testutil.NewPortfolio().WithCurrencies("USD", "USD").Build(t, db)
	testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2024-01-10")).Build(t, db)

	points, err := svc.Performance.NetWorthSeries(ctx, p.ID, testutil.Day(t, "2024-01-01"), testutil.Day(t, "2024-03-01"), service.GranularityMonthly)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "1100", points[0].Value.Home.String())
	assert.True(t, points[0].Complete)
	assert.False(t, points[1].Complete)
	assert.Equal(t, []string{"AAPL.US"}, points[1].MissingPrices)
	assert.Equal(t, "$1,320.00", points[2].Display.Home)
}
