package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
)

// FinanceClient provides methods for fetching daily price series from the
// Yahoo Finance chart API.
type FinanceClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFinanceClient creates a new Yahoo Finance client.
//
// Parameters:
//   - baseURL: API root, e.g. https://query1.finance.yahoo.com
//   - timeout: per-request timeout
func NewFinanceClient(baseURL string, timeout time.Duration) *FinanceClient {
	return &FinanceClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ParseChart converts a raw Yahoo Finance API response into a structured price chart.
// Data points without a close price (holidays, halted sessions) are skipped.
//
// Returns apperrors.ErrNoData if the response carries no usable close price.
func (c *FinanceClient) ParseChart(yahooResult Response) (PriceChart, error) {
	if len(yahooResult.Chart.Result) == 0 {
		return PriceChart{}, fmt.Errorf("%w: empty chart result", apperrors.ErrNoData)
	}
	result := yahooResult.Chart.Result[0]

	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return PriceChart{}, fmt.Errorf("%w: no price data returned", apperrors.ErrNoData)
	}
	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths")
	}

	indicators := make([]Indicators, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			continue
		}
		indicators = append(indicators, Indicators{
			Date:       model.Day(time.Unix(ts, 0).UTC()),
			PriceClose: *closes[i],
		})
	}
	if len(indicators) == 0 {
		return PriceChart{}, fmt.Errorf("%w: no close prices returned", apperrors.ErrNoData)
	}

	return PriceChart{
		Symbol:       result.Meta.Symbol,
		Currency:     result.Meta.Currency,
		ExchangeName: result.Meta.ExchangeName,
		Indicators:   indicators,
	}, nil
}

// GetIndicatorForDate searches for price data matching a specific date.
// The time component of target is ignored.
func (c PriceChart) GetIndicatorForDate(target time.Time) (Indicators, bool) {
	targetDay := model.Day(target)
	for _, ind := range c.Indicators {
		if ind.Date.Equal(targetDay) {
			return ind, true
		}
	}
	return Indicators{}, false
}

// GetIndicatorOnOrBefore returns the latest trading day not after target,
// which is the close that was in effect on target.
func (c PriceChart) GetIndicatorOnOrBefore(target time.Time) (Indicators, bool) {
	targetDay := model.Day(target)
	var found Indicators
	ok := false
	for _, ind := range c.Indicators {
		if ind.Date.After(targetDay) {
			continue
		}
		if !ok || ind.Date.After(found.Date) {
			found, ok = ind, true
		}
	}
	return found, ok
}

// Latest returns the most recent data point of the chart.
func (c PriceChart) Latest() (Indicators, bool) {
	return c.GetIndicatorOnOrBefore(time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
}

// QueryYahooFiveDaySymbol fetches the last 5 days of daily price data for a symbol.
// Used to get the latest available closing price.
func (c *FinanceClient) QueryYahooFiveDaySymbol(ctx context.Context, symbol string) (Response, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d", c.baseURL, url.PathEscape(symbol))
	return c.queryYahoo(ctx, endpoint)
}

// QueryYahooSymbolByDateRange fetches daily price data for a symbol within a specific date range.
//
// Parameters:
//   - symbol: Yahoo ticker symbol (e.g., "AAPL", "2330.TW", "USDTWD=X")
//   - startDate: Beginning of date range (inclusive)
//   - endDate: End of date range (exclusive)
func (c *FinanceClient) QueryYahooSymbolByDateRange(ctx context.Context, symbol string, startDate, endDate time.Time) (Response, error) {
	endpoint := fmt.Sprintf(
		"%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL,
		url.PathEscape(symbol),
		startDate.Unix(),
		endDate.Unix(),
	)
	return c.queryYahoo(ctx, endpoint)
}

// queryYahoo executes a chart request and decodes the response.
//
// Status mapping:
//   - 429: apperrors.ErrRateLimited
//   - 404 or a "Not Found" chart error: apperrors.ErrNoData
//   - any other non-200 status: plain error
func (c *FinanceClient) queryYahoo(ctx context.Context, endpoint string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Response{}, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound:
	case http.StatusTooManyRequests:
		return Response{}, apperrors.ErrRateLimited
	default:
		return Response{}, fmt.Errorf("yahoo http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		if resp.StatusCode == http.StatusNotFound {
			return Response{}, apperrors.ErrNoData
		}
		return Response{}, err
	}

	if response.Chart.Error != nil {
		if response.Chart.Error.Code == "Not Found" || resp.StatusCode == http.StatusNotFound {
			return Response{}, fmt.Errorf("%w: %s", apperrors.ErrNoData, response.Chart.Error.Description)
		}
		return response, fmt.Errorf("yahoo error: %s", response.Chart.Error.Description)
	}
	if resp.StatusCode == http.StatusNotFound {
		return Response{}, apperrors.ErrNoData
	}

	return response, nil
}
