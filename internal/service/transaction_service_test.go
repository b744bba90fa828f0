package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/repository"
	"github.com/ndewijer/portfolio-performance/internal/testutil"
)

func sellParams(t *testing.T, portfolioID, date, quantity string) model.TransactionParams {
	t.Helper()
	return model.TransactionParams{
		PortfolioID:  portfolioID,
		Date:         testutil.Day(t, date),
		Symbol:       "AAPL",
		Market:       model.MarketUS,
		Type:         model.TransactionSell,
		Quantity:     testutil.Dec(quantity),
		UnitPrice:    decimal.NewFromInt(110),
		ExchangeRate: model.Unknown(),
	}
}

// TestTransactionService_Create tests transaction creation.
//
// WHY: The service is the only writer of the transaction stream. It must
// reject sells the portfolio cannot cover, account for splits when doing
// so, and drop snapshots the new transaction makes stale.
func TestTransactionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a covered sell", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2024-01-02")).Build(t, db)

		tx, err := svc.Transaction.Create(ctx, sellParams(t, p.ID, "2024-01-10", "4"))
		require.NoError(t, err)
		assert.NotEmpty(t, tx.ID)
		assert.False(t, tx.CreatedAt.IsZero())

		stored, err := repository.NewTransactionRepository(db).GetByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionSell, stored.Type)
		assert.Equal(t, "4", stored.Quantity.String())
	})

	t.Run("rejects oversell", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2024-01-02")).Build(t, db)

		_, err := svc.Transaction.Create(ctx, sellParams(t, p.ID, "2024-01-10", "11"))
		assert.ErrorIs(t, err, apperrors.ErrInsufficientShares)
		testutil.AssertRowCount(t, db, "transaction", 1)
	})

	t.Run("rejects a sell dated before the buy", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2024-01-10")).Build(t, db)

		_, err := svc.Transaction.Create(ctx, sellParams(t, p.ID, "2024-01-02", "1"))
		assert.ErrorIs(t, err, apperrors.ErrInsufficientShares)
	})

	t.Run("split shares cover the sell", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2024-01-02")).Build(t, db)
		testutil.CreateSplit(t, db, "AAPL", model.MarketUS, testutil.Day(t, "2024-01-05"), "2")

		_, err := svc.Transaction.Create(ctx, sellParams(t, p.ID, "2024-01-10", "15"))
		assert.NoError(t, err)
	})

	t.Run("unknown portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())

		_, err := svc.Transaction.Create(ctx, sellParams(t, testutil.MakeID(), "2024-01-10", "1"))
		assert.ErrorIs(t, err, apperrors.ErrPortfolioNotFound)
	})

	t.Run("invalidates snapshots from its date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		day := testutil.Day(t, "2024-01-02")
		provider := testutil.NewFakeProvider().
			WithValue(aapl, day, "105").
			WithValue(usdtwd, day, "31")
		svc := testutil.NewTestServices(t, db, provider)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(day).WithExchangeRate("30").Build(t, db)

		_, err := svc.Snapshots.EnsureSnapshotsForDate(ctx, p.ID, day)
		require.NoError(t, err)
		testutil.AssertRowCount(t, db, "transaction_snapshot", 1)

		_, err = svc.Transaction.Create(ctx, sellParams(t, p.ID, "2024-01-02", "1"))
		require.NoError(t, err)
		testutil.AssertRowCount(t, db, "transaction_snapshot", 0)
	})
}

// TestTransactionService_Delete tests soft deletion.
//
// WHY: Deleting a buy must not leave a later sell uncovered.
func TestTransactionService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes an unreferenced sell", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2024-01-02")).Build(t, db)
		sell := testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2024-01-10")).Sell().WithQuantity("5").Build(t, db)

		require.NoError(t, svc.Transaction.Delete(ctx, sell.ID))

		live, err := repository.NewTransactionRepository(db).GetByPortfolio(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, live, 1)
	})

	t.Run("rejects deleting a buy a sell depends on", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())
		p := testutil.NewPortfolio().Build(t, db)
		buy := testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2024-01-02")).Build(t, db)
		testutil.NewTransaction(p.ID).WithDate(testutil.Day(t, "2024-01-10")).Sell().WithQuantity("5").Build(t, db)

		err := svc.Transaction.Delete(ctx, buy.ID)
		assert.ErrorIs(t, err, apperrors.ErrInsufficientShares)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestServices(t, db, testutil.NewFakeProvider())

		err := svc.Transaction.Delete(ctx, testutil.MakeID())
		assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
	})
}
