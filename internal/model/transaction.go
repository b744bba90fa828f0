package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/precision"
)

// TransactionType is the kind of a stock transaction.
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// Transaction is an immutable buy or sell of a symbol within a portfolio.
// Quantities and prices are rounded to share precision, fees to money
// precision and the exchange rate (source → home) to rate precision.
type Transaction struct {
	ID               string          `json:"id"`
	PortfolioID      string          `json:"portfolioId"`
	Date             time.Time       `json:"date"`
	Symbol           string          `json:"symbol"`
	Market           Market          `json:"market"`
	Type             TransactionType `json:"type"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	Fees             decimal.Decimal `json:"fees"`
	ExchangeRate     Optional        `json:"exchangeRate"`
	CurrencyLedgerID string          `json:"currencyLedgerId,omitempty"`
	IsDeleted        bool            `json:"isDeleted"`
	CreatedAt        time.Time       `json:"createdAt"`

	// traded holds the executed quantity and price once a split
	// restatement has replaced Quantity and UnitPrice.
	traded *tradedTerms
}

type tradedTerms struct {
	quantity decimal.Decimal
	price    decimal.Decimal
}

// TransactionParams carries the raw fields for NewTransaction.
type TransactionParams struct {
	ID               string
	PortfolioID      string
	Date             time.Time
	Symbol           string
	Market           Market
	Type             TransactionType
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	Fees             decimal.Decimal
	ExchangeRate     Optional
	CurrencyLedgerID string
	IsDeleted        bool
	CreatedAt        time.Time
}

// NewTransaction validates p and returns the rounded value object.
func NewTransaction(p TransactionParams) (Transaction, error) {
	if p.Type != TransactionBuy && p.Type != TransactionSell {
		return Transaction{}, fmt.Errorf("invalid transaction type %q", p.Type)
	}
	if _, ok := markets[p.Market]; !ok {
		return Transaction{}, fmt.Errorf("unsupported market %q", p.Market)
	}
	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if symbol == "" {
		return Transaction{}, fmt.Errorf("symbol is required")
	}
	if p.Date.IsZero() {
		return Transaction{}, fmt.Errorf("date is required")
	}

	quantity := precision.Shares(p.Quantity)
	if !quantity.IsPositive() {
		return Transaction{}, fmt.Errorf("quantity must be positive")
	}
	price := precision.Shares(p.UnitPrice)
	if price.IsNegative() {
		return Transaction{}, fmt.Errorf("unit price cannot be negative")
	}
	fees := precision.Money(p.Fees)
	if fees.IsNegative() {
		return Transaction{}, fmt.Errorf("fees cannot be negative")
	}
	rate := p.ExchangeRate.Map(precision.Rate)
	if r, ok := rate.Get(); ok && !r.IsPositive() {
		return Transaction{}, fmt.Errorf("exchange rate must be positive")
	}

	return Transaction{
		ID:               p.ID,
		PortfolioID:      p.PortfolioID,
		Date:             Day(p.Date),
		Symbol:           symbol,
		Market:           p.Market,
		Type:             p.Type,
		Quantity:         quantity,
		UnitPrice:        price,
		Fees:             fees,
		ExchangeRate:     rate,
		CurrencyLedgerID: p.CurrencyLedgerID,
		IsDeleted:        p.IsDeleted,
		CreatedAt:        p.CreatedAt,
	}, nil
}

// SourceCurrency is the currency the transaction was denominated in.
func (t Transaction) SourceCurrency() string { return t.Market.Currency() }

// Amount is the cash moved by the transaction in source currency: total
// cost for a buy, net proceeds for a sell. It is computed from the executed
// terms, so split restatement never changes it.
func (t Transaction) Amount() decimal.Decimal {
	quantity, price := t.Quantity, t.UnitPrice
	if t.traded != nil {
		quantity, price = t.traded.quantity, t.traded.price
	}
	if t.Type == TransactionSell {
		return precision.SellProceeds(string(t.Market), quantity, price, t.Fees)
	}
	return precision.BuyCost(string(t.Market), quantity, price, t.Fees)
}

// WithAdjusted returns a copy carrying split-adjusted quantity and price.
// The executed terms are kept for Amount.
func (t Transaction) WithAdjusted(quantity, price decimal.Decimal) Transaction {
	if t.traded == nil {
		t.traded = &tradedTerms{quantity: t.Quantity, price: t.UnitPrice}
	}
	t.Quantity = quantity
	t.UnitPrice = price
	return t
}

// PositionKey identifies a holding.
type PositionKey struct {
	Symbol string `json:"symbol"`
	Market Market `json:"market"`
}

func (k PositionKey) String() string { return k.Symbol + "." + string(k.Market) }

// Key returns the holding this transaction belongs to.
func (t Transaction) Key() PositionKey { return PositionKey{Symbol: t.Symbol, Market: t.Market} }

// StockSplit multiplies share counts by Ratio from EffectiveDate on.
type StockSplit struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Market        Market          `json:"market"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	Ratio         decimal.Decimal `json:"ratio"`
}

// NewStockSplit validates and builds a split.
func NewStockSplit(id, symbol string, market Market, effective time.Time, ratio decimal.Decimal) (StockSplit, error) {
	if !ratio.IsPositive() {
		return StockSplit{}, fmt.Errorf("split ratio must be positive")
	}
	if _, ok := markets[market]; !ok {
		return StockSplit{}, fmt.Errorf("unsupported market %q", market)
	}
	return StockSplit{
		ID:            id,
		Symbol:        strings.ToUpper(strings.TrimSpace(symbol)),
		Market:        market,
		EffectiveDate: Day(effective),
		Ratio:         ratio,
	}, nil
}
