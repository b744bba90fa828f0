package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-performance/internal/model"
)

func split(t *testing.T, symbol, date, ratio string) model.StockSplit {
	t.Helper()
	s, err := model.NewStockSplit("split-"+date, symbol, model.MarketUS, day(date), dec(ratio))
	require.NoError(t, err)
	return s
}

// TestAdjustForSplits verifies split composition and its date window.
//
// WHY: Historical share counts must be restated in today's shares, and only
// splits that happened after the trade and on or before the valuation date
// may apply.
func TestAdjustForSplits(t *testing.T) {
	tx := buy(t, "2023-01-02", "NVDA", "100", "50")

	t.Run("single split", func(t *testing.T) {
		splits := []model.StockSplit{split(t, "NVDA", "2023-06-01", "2")}
		adjusted := AdjustForSplits(tx, splits, day("2024-01-01"))
		assert.True(t, adjusted.Quantity.Equal(dec("200")))
		assert.True(t, adjusted.UnitPrice.Equal(dec("25")))
	})

	t.Run("forward and reverse split cancel out", func(t *testing.T) {
		splits := []model.StockSplit{
			split(t, "NVDA", "2023-09-01", "0.5"),
			split(t, "NVDA", "2023-06-01", "2"),
		}
		assert.True(t, CumulativeSplitRatio(tx, splits, day("2024-01-01")).Equal(dec("1")))
		adjusted := AdjustForSplits(tx, splits, day("2024-01-01"))
		assert.True(t, adjusted.Quantity.Equal(tx.Quantity))
		assert.True(t, adjusted.UnitPrice.Equal(tx.UnitPrice))
	})

	t.Run("splits outside the window are ignored", func(t *testing.T) {
		splits := []model.StockSplit{
			split(t, "NVDA", "2023-01-02", "10"),
			split(t, "NVDA", "2024-06-01", "4"),
			split(t, "AAPL", "2023-06-01", "4"),
		}
		adjusted := AdjustForSplits(tx, splits, day("2024-01-01"))
		assert.True(t, adjusted.Quantity.Equal(dec("100")))
	})

	t.Run("cost is preserved", func(t *testing.T) {
		splits := []model.StockSplit{split(t, "NVDA", "2023-06-01", "4")}
		adjusted := AdjustAll([]model.Transaction{tx}, splits, day("2024-01-01"))
		require.Len(t, adjusted, 1)
		assert.True(t, adjusted[0].Amount().Equal(tx.Amount()))
	})
}

// TestAdjustForSplits_UnevenRatio verifies that a ratio which does not
// divide the price evenly leaves the cost basis untouched.
//
// WHY: The restated price is rounded to share precision. Recomputing cost
// from it would shift realized gains and XIRR flows by the rounding error.
func TestAdjustForSplits_UnevenRatio(t *testing.T) {
	for _, market := range []model.Market{model.MarketUS, model.MarketTW} {
		t.Run(string(market), func(t *testing.T) {
			tx := buy(t, "2023-01-02", "2330", "1000", "10", withMarket(market))
			s, err := model.NewStockSplit("split-3", "2330", market, day("2023-06-01"), dec("3"))
			require.NoError(t, err)

			adjusted := AdjustAll([]model.Transaction{tx}, []model.StockSplit{s}, day("2024-01-01"))
			assert.True(t, adjusted[0].Quantity.Equal(dec("3000")))
			assert.True(t, adjusted[0].UnitPrice.Equal(dec("3.3333")))
			assert.Equal(t, "10000", adjusted[0].Amount().String())

			positions, err := CalculatePositions(adjusted, PositionOptions{})
			require.NoError(t, err)
			require.Len(t, positions, 1)
			assert.Equal(t, "10000", positions[0].TotalCostSource.String())

			// Restating an already restated transaction keeps the executed terms.
			again := AdjustForSplits(adjusted[0], []model.StockSplit{s}, day("2024-01-01"))
			assert.Equal(t, "10000", again.Amount().String())
		})
	}
}
