package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
)

func ledgerTx(t *testing.T, typ model.CurrencyTransactionType, date, amount, home, rate string) model.CurrencyTransaction {
	t.Helper()
	p := model.CurrencyTransactionParams{
		ID:            string(typ) + "-" + date,
		LedgerID:      "l1",
		Date:          day(date),
		Type:          typ,
		ForeignAmount: dec(amount),
	}
	if home != "" {
		p.HomeAmount = model.Known(dec(home))
	}
	if rate != "" {
		p.ExchangeRate = model.Known(dec(rate))
	}
	tx, err := model.NewCurrencyTransaction(p)
	require.NoError(t, err)
	return tx
}

// TestLedgerState_ExchangeRoundTrip verifies realized FX gains.
//
// WHY: Selling foreign currency above its average acquisition rate is a
// realized gain measured against that average, which itself does not move.
func TestLedgerState_ExchangeRoundTrip(t *testing.T) {
	state, err := ReplayLedger([]model.CurrencyTransaction{
		ledgerTx(t, model.CurrencyExchangeBuy, "2024-01-02", "100", "3150", "31.5"),
		ledgerTx(t, model.CurrencyExchangeSell, "2024-02-01", "50", "", "32"),
	}, day("2024-12-31"))
	require.NoError(t, err)

	assert.True(t, state.RealizedPnL.Equal(dec("25")), "got %s", state.RealizedPnL)
	assert.True(t, state.Balance.Equal(dec("50")))
	avg, ok := state.AverageCost.Get()
	require.True(t, ok)
	assert.True(t, avg.Equal(dec("31.5")))
	assert.True(t, state.TotalCostHome.Equal(dec("1575")))
}

func TestLedgerState_Apply(t *testing.T) {
	t.Run("buy needs home amount and rate", func(t *testing.T) {
		for _, terms := range [][2]string{{"3150", ""}, {"", "31.5"}, {"", ""}} {
			_, err := LedgerState{}.Apply(ledgerTx(t, model.CurrencyExchangeBuy, "2024-01-02", "100", terms[0], terms[1]))
			assert.ErrorIs(t, err, apperrors.ErrMissingExchangeData, "home=%q rate=%q", terms[0], terms[1])
		}
	})

	t.Run("sell derives the missing rate", func(t *testing.T) {
		start, err := LedgerState{}.Apply(ledgerTx(t, model.CurrencyExchangeBuy, "2024-01-02", "100", "3000", "30"))
		require.NoError(t, err)
		state, err := start.Apply(ledgerTx(t, model.CurrencyExchangeSell, "2024-02-01", "50", "1600", ""))
		require.NoError(t, err)
		assert.Equal(t, "100", state.RealizedPnL.String())
	})

	t.Run("interest lowers the average", func(t *testing.T) {
		state, err := ReplayLedger([]model.CurrencyTransaction{
			ledgerTx(t, model.CurrencyExchangeBuy, "2024-01-02", "100", "3000", "30"),
			ledgerTx(t, model.CurrencyInterest, "2024-02-01", "10", "", ""),
		}, day("2024-12-31"))
		require.NoError(t, err)
		assert.True(t, state.Balance.Equal(dec("110")))
		assert.True(t, state.TotalCostHome.Equal(dec("3000")))
		assert.True(t, state.TotalInterest.Equal(dec("10")))
		avg, _ := state.AverageCost.Get()
		assert.True(t, avg.Equal(dec("27.272727")), "got %s", avg)
	})

	t.Run("spending everything clears the average", func(t *testing.T) {
		state, err := ReplayLedger([]model.CurrencyTransaction{
			ledgerTx(t, model.CurrencyExchangeBuy, "2024-01-02", "100", "3000", "30"),
			ledgerTx(t, model.CurrencySpend, "2024-02-01", "100", "", ""),
		}, day("2024-12-31"))
		require.NoError(t, err)
		assert.True(t, state.Balance.IsZero())
		assert.True(t, state.TotalCostHome.IsZero())
		assert.False(t, state.AverageCost.IsKnown())
		assert.True(t, state.RealizedPnL.IsZero())
		assert.True(t, state.TotalSpent.Equal(dec("100")))
	})

	t.Run("removing more than the balance", func(t *testing.T) {
		start, err := LedgerState{}.Apply(ledgerTx(t, model.CurrencyExchangeBuy, "2024-01-02", "100", "3000", "30"))
		require.NoError(t, err)

		next, err := start.Apply(ledgerTx(t, model.CurrencyExchangeSell, "2024-02-01", "200", "", "31"))
		assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
		assert.True(t, next.Balance.Equal(dec("100")))
	})
}

func TestAverageCostAt(t *testing.T) {
	txs := []model.CurrencyTransaction{
		ledgerTx(t, model.CurrencyExchangeBuy, "2024-01-02", "100", "3000", "30"),
		ledgerTx(t, model.CurrencyExchangeBuy, "2024-03-01", "100", "3200", "32"),
	}

	avg, err := AverageCostAt(txs, day("2024-02-01"))
	require.NoError(t, err)
	v, _ := avg.Get()
	assert.True(t, v.Equal(dec("30")))

	avg, err = AverageCostAt(txs, day("2024-03-01"))
	require.NoError(t, err)
	v, _ = avg.Get()
	assert.True(t, v.Equal(dec("31")))

	avg, err = AverageCostAt(txs, day("2023-12-31"))
	require.NoError(t, err)
	assert.False(t, avg.IsKnown())
}
