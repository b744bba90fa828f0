package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/repository"
)

// Day parses a YYYY-MM-DD literal, failing the test on error.
func Day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

// Dec parses a decimal literal, panicking on error.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// PortfolioBuilder provides a fluent interface for creating test portfolios.
type PortfolioBuilder struct {
	id            string
	name          string
	baseCurrency  string
	homeCurrency  string
	boundLedgerID string
}

// NewPortfolio creates a portfolio builder with USD base and TWD home currency.
func NewPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{
		id:           MakeID(),
		name:         MakePortfolioName("Portfolio"),
		baseCurrency: "USD",
		homeCurrency: "TWD",
	}
}

// WithID sets the portfolio ID.
func (b *PortfolioBuilder) WithID(id string) *PortfolioBuilder {
	b.id = id
	return b
}

// WithCurrencies sets the base (source) and home currency.
func (b *PortfolioBuilder) WithCurrencies(base, home string) *PortfolioBuilder {
	b.baseCurrency = base
	b.homeCurrency = home
	return b
}

// WithBoundLedger binds a currency ledger to the portfolio.
func (b *PortfolioBuilder) WithBoundLedger(ledgerID string) *PortfolioBuilder {
	b.boundLedgerID = ledgerID
	return b
}

// Build creates the portfolio in the database and returns it.
func (b *PortfolioBuilder) Build(t *testing.T, db *sql.DB) model.Portfolio {
	t.Helper()

	p, err := model.NewPortfolio(b.id, b.name, b.baseCurrency, b.homeCurrency, b.boundLedgerID)
	if err != nil {
		t.Fatalf("Failed to build portfolio: %v", err)
	}
	if err := repository.NewPortfolioRepository(db).InsertPortfolio(context.Background(), p); err != nil {
		t.Fatalf("Failed to create portfolio: %v", err)
	}
	return p
}

// TransactionBuilder provides a fluent interface for creating test transactions.
// Creation timestamps increase with every Build so same-day order follows
// build order.
type TransactionBuilder struct {
	params model.TransactionParams
}

var createdAtSeq = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// NewTransaction creates a builder for a buy of 10 AAPL on the US market at 100.
func NewTransaction(portfolioID string) *TransactionBuilder {
	return &TransactionBuilder{params: model.TransactionParams{
		ID:           MakeID(),
		PortfolioID:  portfolioID,
		Date:         time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Symbol:       "AAPL",
		Market:       model.MarketUS,
		Type:         model.TransactionBuy,
		Quantity:     decimal.NewFromInt(10),
		UnitPrice:    decimal.NewFromInt(100),
		ExchangeRate: model.Unknown(),
	}}
}

// WithID sets the transaction ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.params.ID = id
	return b
}

// WithDate sets the trade date.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.params.Date = date
	return b
}

// WithSymbol sets symbol and market.
func (b *TransactionBuilder) WithSymbol(symbol string, market model.Market) *TransactionBuilder {
	b.params.Symbol = symbol
	b.params.Market = market
	return b
}

// Sell turns the transaction into a sell.
func (b *TransactionBuilder) Sell() *TransactionBuilder {
	b.params.Type = model.TransactionSell
	return b
}

// WithQuantity sets the share count.
func (b *TransactionBuilder) WithQuantity(q string) *TransactionBuilder {
	b.params.Quantity = Dec(q)
	return b
}

// WithUnitPrice sets the price per share.
func (b *TransactionBuilder) WithUnitPrice(p string) *TransactionBuilder {
	b.params.UnitPrice = Dec(p)
	return b
}

// WithFees sets the fees.
func (b *TransactionBuilder) WithFees(f string) *TransactionBuilder {
	b.params.Fees = Dec(f)
	return b
}

// WithExchangeRate sets the source to home rate.
func (b *TransactionBuilder) WithExchangeRate(r string) *TransactionBuilder {
	b.params.ExchangeRate = model.Known(Dec(r))
	return b
}

// WithLedger marks the transaction as funded from a currency ledger.
func (b *TransactionBuilder) WithLedger(ledgerID string) *TransactionBuilder {
	b.params.CurrencyLedgerID = ledgerID
	return b
}

// Build creates the transaction in the database and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	createdAtSeq = createdAtSeq.Add(time.Second)
	b.params.CreatedAt = createdAtSeq

	tx, err := model.NewTransaction(b.params)
	if err != nil {
		t.Fatalf("Failed to build transaction: %v", err)
	}
	if err := repository.NewTransactionRepository(db).Insert(context.Background(), tx); err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}
	return tx
}

// LedgerBuilder provides a fluent interface for creating currency ledgers
// and their movements.
type LedgerBuilder struct {
	ledger model.CurrencyLedger
	txs    []model.CurrencyTransactionParams
}

// NewLedger creates a builder for a USD ledger accounted in TWD.
func NewLedger() *LedgerBuilder {
	return &LedgerBuilder{ledger: model.CurrencyLedger{
		ID:           MakeID(),
		Name:         "USD cash",
		Currency:     "USD",
		HomeCurrency: "TWD",
	}}
}

// WithCurrencies sets the foreign and home currency.
func (b *LedgerBuilder) WithCurrencies(currency, home string) *LedgerBuilder {
	b.ledger.Currency = currency
	b.ledger.HomeCurrency = home
	return b
}

// ExchangeBuy adds a purchase of amount foreign units at rate, recording
// the home amount paid.
func (b *LedgerBuilder) ExchangeBuy(date time.Time, amount, rate string) *LedgerBuilder {
	return b.add(date, model.CurrencyExchangeBuy, amount, rate)
}

// ExchangeSell adds a sale of amount foreign units at rate.
func (b *LedgerBuilder) ExchangeSell(date time.Time, amount, rate string) *LedgerBuilder {
	return b.add(date, model.CurrencyExchangeSell, amount, rate)
}

// Interest adds an interest credit.
func (b *LedgerBuilder) Interest(date time.Time, amount string) *LedgerBuilder {
	return b.add(date, model.CurrencyInterest, amount, "")
}

// Spend adds a withdrawal.
func (b *LedgerBuilder) Spend(date time.Time, amount string) *LedgerBuilder {
	return b.add(date, model.CurrencySpend, amount, "")
}

func (b *LedgerBuilder) add(date time.Time, typ model.CurrencyTransactionType, amount, rate string) *LedgerBuilder {
	p := model.CurrencyTransactionParams{
		ID:            MakeID(),
		LedgerID:      b.ledger.ID,
		Date:          date,
		Type:          typ,
		ForeignAmount: Dec(amount),
		HomeAmount:    model.Unknown(),
		ExchangeRate:  model.Unknown(),
	}
	if rate != "" {
		p.ExchangeRate = model.Known(Dec(rate))
		if typ == model.CurrencyExchangeBuy {
			p.HomeAmount = model.Known(Dec(amount).Mul(Dec(rate)))
		}
	}
	b.txs = append(b.txs, p)
	return b
}

// Build creates the ledger and its movements and returns the ledger.
func (b *LedgerBuilder) Build(t *testing.T, db *sql.DB) model.CurrencyLedger {
	t.Helper()

	repo := repository.NewLedgerRepository(db)
	ctx := context.Background()
	if err := repo.InsertLedger(ctx, b.ledger); err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	for _, p := range b.txs {
		createdAtSeq = createdAtSeq.Add(time.Second)
		p.CreatedAt = createdAtSeq
		tx, err := model.NewCurrencyTransaction(p)
		if err != nil {
			t.Fatalf("Failed to build currency transaction: %v", err)
		}
		if err := repo.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("Failed to create currency transaction: %v", err)
		}
	}
	return b.ledger
}

// CreateSplit stores a stock split.
func CreateSplit(t *testing.T, db *sql.DB, symbol string, market model.Market, effective time.Time, ratio string) model.StockSplit {
	t.Helper()

	s, err := model.NewStockSplit(MakeID(), symbol, market, effective, Dec(ratio))
	if err != nil {
		t.Fatalf("Failed to build split: %v", err)
	}
	if err := repository.NewSplitRepository(db).Insert(context.Background(), s); err != nil {
		t.Fatalf("Failed to create split: %v", err)
	}
	return s
}

// CreateMarketData stores a cached value for key on date.
func CreateMarketData(t *testing.T, db *sql.DB, key model.MarketDataKey, date time.Time, value string) model.MarketDataEntry {
	t.Helper()

	e := model.MarketDataEntry{
		Kind:       key.Kind,
		Key:        key.CacheKey(),
		Date:       date,
		Value:      Dec(value),
		ActualDate: date,
		Source:     "test",
		FetchedAt:  time.Now().UTC(),
	}
	if err := repository.NewMarketDataRepository(db).Insert(context.Background(), e); err != nil {
		t.Fatalf("Failed to create market data: %v", err)
	}
	return e
}

// CreateUnavailableMarketData stores a terminal unavailable marker.
func CreateUnavailableMarketData(t *testing.T, db *sql.DB, key model.MarketDataKey, date time.Time) {
	t.Helper()

	e := model.MarketDataEntry{
		Kind:          key.Kind,
		Key:           key.CacheKey(),
		Date:          date,
		Source:        "test",
		FetchedAt:     time.Now().UTC(),
		IsUnavailable: true,
	}
	if err := repository.NewMarketDataRepository(db).Insert(context.Background(), e); err != nil {
		t.Fatalf("Failed to create market data: %v", err)
	}
}
