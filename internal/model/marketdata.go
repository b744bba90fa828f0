package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketDataKind separates security prices from exchange rates in the cache.
type MarketDataKind string

const (
	KindPrice MarketDataKind = "price"
	KindFX    MarketDataKind = "fx"
)

// MarketDataKey identifies a cached series: a symbol on a market, or a
// currency pair such as USD→TWD.
type MarketDataKey struct {
	Kind   MarketDataKind
	Symbol string
	Market Market
	From   string
	To     string
}

// PriceKey builds the key for a security price.
func PriceKey(symbol string, market Market) MarketDataKey {
	return MarketDataKey{Kind: KindPrice, Symbol: symbol, Market: market}
}

// FXKey builds the key for an exchange rate quoted as units of to per from.
func FXKey(from, to string) MarketDataKey {
	return MarketDataKey{Kind: KindFX, From: from, To: to}
}

// CacheKey is the string stored in the cache key column.
func (k MarketDataKey) CacheKey() string {
	if k.Kind == KindFX {
		return k.From + k.To
	}
	return k.Symbol + "." + string(k.Market)
}

func (k MarketDataKey) String() string { return string(k.Kind) + ":" + k.CacheKey() }

// MarketDataEntry is a persisted historical price or rate. Entries for past
// dates are immutable; IsUnavailable marks a confirmed permanent gap.
type MarketDataEntry struct {
	Kind          MarketDataKind
	Key           string
	Date          time.Time
	Value         decimal.Decimal
	ActualDate    time.Time
	Source        string
	FetchedAt     time.Time
	IsUnavailable bool
}

// Quote is a value returned by an upstream provider.
type Quote struct {
	Value      decimal.Decimal
	ActualDate time.Time
	Source     string
}
