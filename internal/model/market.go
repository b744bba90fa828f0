package model

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Market identifies the exchange a symbol trades on.
type Market string

const (
	MarketTW Market = "TW"
	MarketUS Market = "US"
	MarketUK Market = "UK"
	MarketEU Market = "EU"
	MarketJP Market = "JP"
)

type marketInfo struct {
	currency    string
	yahooSuffix string
}

var markets = map[Market]marketInfo{
	MarketTW: {currency: "TWD", yahooSuffix: ".TW"},
	MarketUS: {currency: "USD", yahooSuffix: ""},
	MarketUK: {currency: "GBP", yahooSuffix: ".L"},
	MarketEU: {currency: "EUR", yahooSuffix: ".AS"},
	MarketJP: {currency: "JPY", yahooSuffix: ".T"},
}

// ParseMarket validates a market code.
func ParseMarket(code string) (Market, error) {
	m := Market(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := markets[m]; !ok {
		return "", fmt.Errorf("unsupported market %q", code)
	}
	return m, nil
}

// Currency is the ISO 4217 code prices on this market are quoted in.
func (m Market) Currency() string { return markets[m].currency }

// YahooSymbol maps a ticker on this market to its Yahoo Finance symbol.
func (m Market) YahooSymbol(symbol string) string { return symbol + markets[m].yahooSuffix }

// ValidateCurrency checks that code is a known ISO 4217 currency.
func ValidateCurrency(code string) error {
	if code == "" || money.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency %q", code)
	}
	return nil
}

// FormatMoney renders amount in currency with its symbol and minor units,
// e.g. "NT$1,575.00". Unknown currencies fall back to the plain decimal.
func FormatMoney(amount decimal.Decimal, code string) string {
	c := money.GetCurrency(code)
	if c == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}
