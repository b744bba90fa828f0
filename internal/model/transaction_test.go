package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewTransaction verifies validation and rounding at construction.
//
// WHY: Every calculation downstream assumes values were rounded once at the
// boundary and that obviously invalid rows never enter the stream.
func TestNewTransaction(t *testing.T) {
	valid := func() TransactionParams {
		return TransactionParams{
			ID:           "t1",
			PortfolioID:  "p1",
			Date:         time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC),
			Symbol:       " aapl ",
			Market:       MarketUS,
			Type:         TransactionBuy,
			Quantity:     decimal.RequireFromString("1.23456"),
			UnitPrice:    decimal.RequireFromString("100.00005"),
			Fees:         decimal.RequireFromString("0.125"),
			ExchangeRate: Known(decimal.RequireFromString("31.2345675")),
		}
	}

	t.Run("rounds and normalizes", func(t *testing.T) {
		tx, err := NewTransaction(valid())
		require.NoError(t, err)
		assert.Equal(t, "AAPL", tx.Symbol)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), tx.Date)
		assert.Equal(t, "1.2346", tx.Quantity.String())
		assert.Equal(t, "100.0001", tx.UnitPrice.String())
		assert.Equal(t, "0.13", tx.Fees.String())
		rate, _ := tx.ExchangeRate.Get()
		assert.Equal(t, "31.234568", rate.String())
		assert.Equal(t, "USD", tx.SourceCurrency())
		assert.Equal(t, "AAPL.US", tx.Key().String())
	})

	cases := map[string]func(p *TransactionParams){
		"bad type":      func(p *TransactionParams) { p.Type = "dividend" },
		"bad market":    func(p *TransactionParams) { p.Market = "XX" },
		"empty symbol":  func(p *TransactionParams) { p.Symbol = "  " },
		"zero quantity": func(p *TransactionParams) { p.Quantity = decimal.Zero },
		"negative fee":  func(p *TransactionParams) { p.Fees = decimal.NewFromInt(-1) },
		"zero rate":     func(p *TransactionParams) { p.ExchangeRate = Known(decimal.Zero) },
		"missing date":  func(p *TransactionParams) { p.Date = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := valid()
			mutate(&p)
			_, err := NewTransaction(p)
			assert.Error(t, err)
		})
	}
}

func TestTransaction_Amount(t *testing.T) {
	tx, err := NewTransaction(TransactionParams{
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Symbol:    "2330",
		Market:    MarketTW,
		Type:      TransactionSell,
		Quantity:  decimal.NewFromInt(3),
		UnitPrice: decimal.RequireFromString("10.55"),
		Fees:      decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	assert.Equal(t, "11", tx.Amount().String())
}

func TestMarket(t *testing.T) {
	m, err := ParseMarket("tw")
	require.NoError(t, err)
	assert.Equal(t, MarketTW, m)
	assert.Equal(t, "2330.TW", m.YahooSymbol("2330"))
	assert.Equal(t, "AAPL", MarketUS.YahooSymbol("AAPL"))

	_, err = ParseMarket("NASDAQ")
	assert.Error(t, err)

	assert.NoError(t, ValidateCurrency("TWD"))
	assert.Error(t, ValidateCurrency("XYZ"))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatMoney(decimal.RequireFromString("1234.5"), "USD"))
	assert.Equal(t, "-$25.00", FormatMoney(decimal.NewFromInt(-25), "USD"))
}
