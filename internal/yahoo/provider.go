package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
)

// SourceName is recorded as the provenance of every value fetched here.
const SourceName = "yahoo"

// lookback is how far before a requested date a close may come from, to
// cover weekends and holidays.
const lookback = 7 * 24 * time.Hour

// Provider adapts FinanceClient to the historical and live quote contracts
// of the price cache.
type Provider struct {
	client *FinanceClient
}

// NewProvider wraps a FinanceClient.
func NewProvider(client *FinanceClient) *Provider {
	return &Provider{client: client}
}

// Name identifies the provider in logs and cache provenance.
func (p *Provider) Name() string { return SourceName }

// Symbol maps a cache key to its Yahoo ticker. Exchange rates use the
// "USDTWD=X" form.
func Symbol(key model.MarketDataKey) string {
	if key.Kind == model.KindFX {
		return key.From + key.To + "=X"
	}
	return key.Market.YahooSymbol(key.Symbol)
}

// FetchHistorical returns the close in effect on date: that day's close, or
// the last one before it within a week.
//
// Returns apperrors.ErrNoData when no close exists in the window and
// apperrors.ErrRateLimited when Yahoo throttles the request.
func (p *Provider) FetchHistorical(ctx context.Context, key model.MarketDataKey, date time.Time) (model.Quote, error) {
	day := model.Day(date)
	resp, err := p.client.QueryYahooSymbolByDateRange(ctx, Symbol(key), day.Add(-lookback), day.AddDate(0, 0, 1))
	if err != nil {
		return model.Quote{}, err
	}
	chart, err := p.client.ParseChart(resp)
	if err != nil {
		return model.Quote{}, err
	}

	ind, ok := chart.GetIndicatorOnOrBefore(day)
	if !ok {
		return model.Quote{}, noData(key, day)
	}
	return quoteFrom(ind), nil
}

// FetchLatest returns the most recent close.
func (p *Provider) FetchLatest(ctx context.Context, key model.MarketDataKey) (model.Quote, error) {
	resp, err := p.client.QueryYahooFiveDaySymbol(ctx, Symbol(key))
	if err != nil {
		return model.Quote{}, err
	}
	chart, err := p.client.ParseChart(resp)
	if err != nil {
		return model.Quote{}, err
	}

	ind, ok := chart.Latest()
	if !ok {
		return model.Quote{}, noData(key, model.Today())
	}
	return quoteFrom(ind), nil
}

func quoteFrom(ind Indicators) model.Quote {
	return model.Quote{
		Value:      decimal.NewFromFloat(ind.PriceClose),
		ActualDate: ind.Date,
		Source:     SourceName,
	}
}

func noData(key model.MarketDataKey, date time.Time) error {
	return fmt.Errorf("%w: %s on %s", apperrors.ErrNoData, key, date.Format(model.DateLayout))
}
