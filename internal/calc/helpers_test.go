package calc

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-performance/internal/model"
)

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type txOpt func(*model.TransactionParams)

func withRate(r string) txOpt {
	return func(p *model.TransactionParams) { p.ExchangeRate = model.Known(dec(r)) }
}

func withFees(f string) txOpt {
	return func(p *model.TransactionParams) { p.Fees = dec(f) }
}

func withMarket(m model.Market) txOpt {
	return func(p *model.TransactionParams) { p.Market = m }
}

func withCreatedAt(ts time.Time) txOpt {
	return func(p *model.TransactionParams) { p.CreatedAt = ts }
}

func makeTx(t *testing.T, id string, typ model.TransactionType, date, symbol, qty, price string, opts ...txOpt) model.Transaction {
	t.Helper()
	p := model.TransactionParams{
		ID:          id,
		PortfolioID: "p1",
		Date:        day(date),
		Symbol:      symbol,
		Market:      model.MarketUS,
		Type:        typ,
		Quantity:    dec(qty),
		UnitPrice:   dec(price),
	}
	for _, o := range opts {
		o(&p)
	}
	tx, err := model.NewTransaction(p)
	require.NoError(t, err)
	return tx
}

func buy(t *testing.T, date, symbol, qty, price string, opts ...txOpt) model.Transaction {
	return makeTx(t, "b-"+date+"-"+symbol, model.TransactionBuy, date, symbol, qty, price, opts...)
}

func sell(t *testing.T, date, symbol, qty, price string, opts ...txOpt) model.Transaction {
	return makeTx(t, "s-"+date+"-"+symbol, model.TransactionSell, date, symbol, qty, price, opts...)
}
