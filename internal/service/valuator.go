package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/precision"
)

// HoldingValue is the market value of one open position.
type HoldingValue struct {
	Key         model.PositionKey `json:"key"`
	Price       model.Optional    `json:"price"`
	PriceDate   time.Time         `json:"priceDate"`
	MarketValue model.Optional    `json:"marketValue"`
	ValueHome   model.Optional    `json:"valueHome"`
	ValueSource model.Optional    `json:"valueSource"`
}

// PortfolioValuation is the value of a set of positions on one date.
//
// Holdings whose price or exchange rate could not be resolved are listed in
// MissingPrices and MissingRates and contribute nothing to the totals; they
// are never valued at zero. RateLimited means the valuation stopped early
// and must not be persisted.
type PortfolioValuation struct {
	Date          time.Time       `json:"date"`
	Total         model.Valuation `json:"total"`
	Holdings      []HoldingValue  `json:"holdings"`
	MissingPrices []string        `json:"missingPrices"`
	MissingRates  []string        `json:"missingRates"`
	RateLimited   bool            `json:"rateLimited"`
}

// Complete reports whether every holding was valued.
func (v PortfolioValuation) Complete() bool {
	return !v.RateLimited && len(v.MissingPrices) == 0 && len(v.MissingRates) == 0
}

// Valuator converts positions into portfolio values through the PriceCache.
type Valuator struct {
	cache *PriceCache
}

// NewValuator creates a Valuator.
func NewValuator(cache *PriceCache) *Valuator {
	return &Valuator{cache: cache}
}

// IsCurrentPeriod reports whether date has not closed yet, so its prices
// are live quotes.
func (v *Valuator) IsCurrentPeriod(date time.Time) bool { return v.cache.IsCurrentPeriod(date) }

func (v *Valuator) now() time.Time { return v.cache.now() }

// Rate returns the exchange rate from one currency into another on date.
// Identical currencies resolve to 1 without a lookup.
func (v *Valuator) Rate(ctx context.Context, from, to string, date time.Time) (Lookup, error) {
	if from == to {
		return Lookup{
			Status: LookupOK,
			Quote:  model.Quote{Value: decimal.NewFromInt(1), ActualDate: model.Day(date), Source: "identity"},
		}, nil
	}
	l, err := v.cache.GetOrFetch(ctx, model.FXKey(from, to), date)
	if err != nil || !l.OK() {
		return l, err
	}
	l.Quote.Value = precision.Rate(l.Quote.Value)
	return l, nil
}

// Price returns the close of a holding on date.
func (v *Valuator) Price(ctx context.Context, key model.PositionKey, date time.Time) (Lookup, error) {
	return v.cache.GetOrFetch(ctx, model.PriceKey(key.Symbol, key.Market), date)
}

// ValuePositions values every open position on date in the portfolio's home
// and base currencies.
func (v *Valuator) ValuePositions(ctx context.Context, portfolio model.Portfolio, positions []model.Position, date time.Time) (PortfolioValuation, error) {
	result := PortfolioValuation{
		Date:  model.Day(date),
		Total: model.Valuation{Home: decimal.Zero, Source: decimal.Zero},
	}

	for _, p := range positions {
		if !p.IsOpen() {
			continue
		}
		hv := HoldingValue{
			Key:         p.Key(),
			Price:       model.Unknown(),
			MarketValue: model.Unknown(),
			ValueHome:   model.Unknown(),
			ValueSource: model.Unknown(),
		}

		price, err := v.Price(ctx, p.Key(), date)
		if err != nil {
			return result, err
		}
		if price.Status == LookupRateLimited {
			result.RateLimited = true
			return result, nil
		}
		if !price.OK() {
			result.MissingPrices = append(result.MissingPrices, p.Key().String())
			result.Holdings = append(result.Holdings, hv)
			continue
		}

		marketValue := precision.Money(p.TotalQuantity.Mul(price.Quote.Value))
		hv.Price = model.Known(price.Quote.Value)
		hv.PriceDate = price.Quote.ActualDate
		hv.MarketValue = model.Known(marketValue)

		home, limited, err := v.convert(ctx, &result, marketValue, p.Market.Currency(), portfolio.HomeCurrency, date)
		if err != nil || limited {
			return result, err
		}
		source, limited, err := v.convert(ctx, &result, marketValue, p.Market.Currency(), portfolio.BaseCurrency, date)
		if err != nil || limited {
			return result, err
		}
		hv.ValueHome = home
		hv.ValueSource = source
		result.Holdings = append(result.Holdings, hv)

		if h, ok := home.Get(); ok {
			result.Total.Home = result.Total.Home.Add(h)
		}
		if s, ok := source.Get(); ok {
			result.Total.Source = result.Total.Source.Add(s)
		}
	}

	sort.Strings(result.MissingPrices)
	sort.Strings(result.MissingRates)
	return result, nil
}

// convert applies the from→to rate to amount, recording a missing pair on
// the valuation. The boolean reports rate limiting.
func (v *Valuator) convert(ctx context.Context, result *PortfolioValuation, amount decimal.Decimal, from, to string, date time.Time) (model.Optional, bool, error) {
	rate, err := v.Rate(ctx, from, to, date)
	if err != nil {
		return model.Unknown(), false, err
	}
	switch rate.Status {
	case LookupRateLimited:
		result.RateLimited = true
		return model.Unknown(), true, nil
	case LookupUnavailable:
		pair := from + to
		for _, m := range result.MissingRates {
			if m == pair {
				return model.Unknown(), false, nil
			}
		}
		result.MissingRates = append(result.MissingRates, pair)
		return model.Unknown(), false, nil
	}
	return model.Known(precision.Money(amount.Mul(rate.Quote.Value))), false, nil
}
