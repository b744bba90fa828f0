package yahoo

import "time"

// Response represents the raw JSON response structure from Yahoo Finance API.
// This type maps directly to the Yahoo Finance chart API response format.
//
// The structure includes:
//   - Chart.Result: Array of result objects (typically contains one element)
//   - Chart.Result[].Meta: Symbol metadata (currency, exchange)
//   - Chart.Result[].Timestamp: Unix timestamps for each data point
//   - Chart.Result[].Indicators: Price arrays; entries are null on days without trading
//   - Chart.Error: Optional error object from Yahoo API
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart is the top-level payload of a chart response.
type Chart struct {
	Result []Result     `json:"result"`
	Error  *ChartError `json:"error"`
}

// ChartError is the error object Yahoo returns instead of a result.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Result is the series for one symbol.
type Result struct {
	Meta       Meta                `json:"meta"`
	Timestamp  []int64             `json:"timestamp"`
	Indicators IndicatorsContainer `json:"indicators"`
}

// IndicatorsContainer wraps the quote arrays.
type IndicatorsContainer struct {
	Quote []Quote `json:"quote"`
}

// Meta carries symbol metadata.
type Meta struct {
	Currency           string   `json:"currency"`
	Symbol             string   `json:"symbol"`
	ExchangeName       string   `json:"exchangeName"`
	RegularMarketTime  int64    `json:"regularMarketTime"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
}

// Quote holds the OHLC arrays of a result.
type Quote struct {
	Open  []*float64 `json:"open"`
	Close []*float64 `json:"close"`
	High  []*float64 `json:"high"`
	Low   []*float64 `json:"low"`
}

// PriceChart represents a parsed price chart from Yahoo Finance.
// Days without a close price are dropped during parsing.
type PriceChart struct {
	Currency     string       `json:"currency"`
	Symbol       string       `json:"symbol"`
	ExchangeName string       `json:"exchangeName"`
	Indicators   []Indicators `json:"indicators"`
}

// Indicators represents a single day's price data for a financial instrument.
//
// Fields:
//   - Date: Trading date (time component set to midnight UTC)
//   - PriceClose: Closing price for the day
type Indicators struct {
	Date       time.Time
	PriceClose float64
}
