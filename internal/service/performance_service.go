package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/calc"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/precision"
)

// ReportCurrency selects which side of a portfolio a return is measured in.
type ReportCurrency string

const (
	CurrencyHome   ReportCurrency = "home"
	CurrencySource ReportCurrency = "source"
)

// Granularity is the spacing of a net worth series.
type Granularity string

const (
	GranularityMonthly Granularity = "monthly"
	GranularityAnnual  Granularity = "annual"
)

// shortPeriodMonths is the holding period below which an annualized rate
// is flagged as unreliable.
const shortPeriodMonths = 3

// PositionReport is one open or closed position with its market value.
type PositionReport struct {
	model.Position
	Value               HoldingValue    `json:"value"`
	UnrealizedPnLSource model.Optional  `json:"unrealizedPnlSource"`
	UnrealizedPnLHome   model.Optional  `json:"unrealizedPnlHome"`
	Display             PositionDisplay `json:"display"`
}

// PositionDisplay carries currency-formatted amounts for presentation.
type PositionDisplay struct {
	TotalCostSource string `json:"totalCostSource"`
	MarketValue     string `json:"marketValue,omitempty"`
}

// PositionsReport is the response of GetPositions.
type PositionsReport struct {
	PortfolioID   string           `json:"portfolioId"`
	AsOf          time.Time        `json:"asOf"`
	Positions     []PositionReport `json:"positions"`
	Total         model.Valuation  `json:"total"`
	MissingPrices []string         `json:"missingPrices"`
	MissingRates  []string         `json:"missingRates"`
	Complete      bool             `json:"complete"`
}

// XIRRResult is the annualized money-weighted return of a portfolio.
//
// Rate is nil when the solver found no root or there were fewer than two
// distinct cash flow dates. Transactions whose flow could not be converted
// are left out of the calculation and their dates (YYYY-MM-DD) listed in
// MissingExchangeRates. Currency pairs missing from the terminal valuation
// are listed in MissingRates.
type XIRRResult struct {
	Currency             ReportCurrency `json:"currency"`
	Rate                 *float64       `json:"rate"`
	CashFlowCount        int            `json:"cashFlowCount"`
	EarliestDate         *time.Time     `json:"earliestDate"`
	MissingExchangeRates []string       `json:"missingExchangeRates"`
	MissingRates         []string       `json:"missingRates"`
	MissingPrices        []string       `json:"missingPrices"`
	IsShortPeriod        bool           `json:"isShortPeriod"`
}

// TWRResult carries time-weighted and Modified Dietz returns over a range.
// Every rate is nil when a valuation in the range could not be completed.
type TWRResult struct {
	From                time.Time `json:"from"`
	To                  time.Time `json:"to"`
	TWRHome             *float64  `json:"twrHome"`
	TWRSource           *float64  `json:"twrSource"`
	AnnualizedTWRHome   *float64  `json:"annualizedTwrHome"`
	ModifiedDietzHome   *float64  `json:"modifiedDietzHome"`
	ModifiedDietzSource *float64  `json:"modifiedDietzSource"`
	SnapshotCount       int       `json:"snapshotCount"`
	IncompleteDates     []string  `json:"incompleteDates"`
	MissingPrices       []string  `json:"missingPrices"`
	MissingRates        []string  `json:"missingRates"`
}

// NetWorthPoint is the portfolio value at one date of a series.
type NetWorthPoint struct {
	Date          time.Time       `json:"date"`
	Value         model.Valuation `json:"value"`
	Display       ValuationText   `json:"display"`
	Complete      bool            `json:"complete"`
	MissingPrices []string        `json:"missingPrices,omitempty"`
	MissingRates  []string        `json:"missingRates,omitempty"`
}

// ValuationText is a valuation formatted in its currencies.
type ValuationText struct {
	Home   string `json:"home"`
	Source string `json:"source"`
}

// PerformanceService computes positions and returns for a portfolio.
type PerformanceService struct {
	loader    *DataLoaderService
	valuator  *Valuator
	snapshots *SnapshotService
}

// NewPerformanceService creates a new PerformanceService with the provided dependencies.
func NewPerformanceService(loader *DataLoaderService, valuator *Valuator, snapshots *SnapshotService) *PerformanceService {
	return &PerformanceService{
		loader:    loader,
		valuator:  valuator,
		snapshots: snapshots,
	}
}

// GetPositions returns every position of the portfolio as of asOf with its
// market value and unrealized P&L.
//
// Unrealized P&L is Unknown when the price (source) or the price, rate or
// home cost (home) is missing. Returns apperrors.ErrRateLimited when the
// upstream throttled the valuation.
func (s *PerformanceService) GetPositions(ctx context.Context, portfolioID string, asOf time.Time) (PositionsReport, error) {
	asOf = model.Day(asOf)
	data, err := s.loader.Load(ctx, portfolioID)
	if err != nil {
		return PositionsReport{}, err
	}

	positions, err := data.PositionsAsOf(asOf)
	if err != nil {
		return PositionsReport{}, err
	}

	valuation, err := s.valuator.ValuePositions(ctx, data.Portfolio, positions, asOf)
	if err != nil {
		return PositionsReport{}, err
	}
	if valuation.RateLimited {
		return PositionsReport{}, apperrors.ErrRateLimited
	}

	values := make(map[model.PositionKey]HoldingValue, len(valuation.Holdings))
	for _, hv := range valuation.Holdings {
		values[hv.Key] = hv
	}

	report := PositionsReport{
		PortfolioID:   portfolioID,
		AsOf:          asOf,
		Positions:     make([]PositionReport, 0, len(positions)),
		Total:         valuation.Total,
		MissingPrices: valuation.MissingPrices,
		MissingRates:  valuation.MissingRates,
		Complete:      valuation.Complete(),
	}
	for _, p := range positions {
		hv, ok := values[p.Key()]
		if !ok {
			hv = HoldingValue{Key: p.Key()}
		}
		pr := PositionReport{
			Position:            p,
			Value:               hv,
			UnrealizedPnLSource: model.Unknown(),
			UnrealizedPnLHome:   model.Unknown(),
			Display: PositionDisplay{
				TotalCostSource: model.FormatMoney(p.TotalCostSource, p.Market.Currency()),
			},
		}
		if mv, ok := hv.MarketValue.Get(); ok {
			pr.UnrealizedPnLSource = model.Known(mv.Sub(p.TotalCostSource))
			pr.Display.MarketValue = model.FormatMoney(mv, p.Market.Currency())
		}
		vh, valueKnown := hv.ValueHome.Get()
		ch, costKnown := p.TotalCostHome.Get()
		if valueKnown && costKnown {
			pr.UnrealizedPnLHome = model.Known(vh.Sub(ch))
		}
		report.Positions = append(report.Positions, pr)
	}

	return report, nil
}

// CalculateXIRR returns the annualized return of the portfolio from its
// first transaction to asOf, measured in the home or base currency.
//
// Buys are negative flows and sells positive, each on its transaction date.
// The market value at asOf is the terminal positive flow. Home flows use the
// transaction's rate (explicit or ledger-implied); source flows convert the
// market currency into the base currency at the rate of the day.
func (s *PerformanceService) CalculateXIRR(ctx context.Context, portfolioID string, asOf time.Time, currency ReportCurrency) (XIRRResult, error) {
	asOf = model.Day(asOf)
	if currency == "" {
		currency = CurrencyHome
	}
	if currency != CurrencyHome && currency != CurrencySource {
		return XIRRResult{}, fmt.Errorf("unsupported currency %q", currency)
	}

	data, err := s.loader.Load(ctx, portfolioID)
	if err != nil {
		return XIRRResult{}, err
	}
	txs, err := data.TransactionsAsOf(asOf)
	if err != nil {
		return XIRRResult{}, err
	}

	result := XIRRResult{
		Currency:             currency,
		MissingExchangeRates: []string{},
		MissingRates:         []string{},
		MissingPrices:        []string{},
	}
	if len(txs) == 0 {
		return result, nil
	}
	earliest := txs[0].Date
	result.EarliestDate = &earliest
	result.IsShortPeriod = asOf.Before(earliest.AddDate(0, shortPeriodMonths, 0))

	flows := make([]calc.CashFlow, 0, len(txs)+1)
	for _, t := range txs {
		amount, ok, err := s.flowAmount(ctx, data.Portfolio, t, currency)
		if err != nil {
			return XIRRResult{}, err
		}
		if !ok {
			result.MissingExchangeRates = mergeSorted(result.MissingExchangeRates, []string{t.Date.Format(model.DateLayout)})
			continue
		}
		if t.Type == model.TransactionBuy {
			amount = amount.Neg()
		}
		flows = append(flows, calc.CashFlow{Date: t.Date, Amount: amount.InexactFloat64()})
	}

	positions, err := calc.CalculatePositions(txs, calc.PositionOptions{AsOf: asOf})
	if err != nil {
		return XIRRResult{}, err
	}
	valuation, err := s.valuator.ValuePositions(ctx, data.Portfolio, positions, asOf)
	if err != nil {
		return XIRRResult{}, err
	}
	if valuation.RateLimited {
		return XIRRResult{}, apperrors.ErrRateLimited
	}
	result.MissingPrices = append(result.MissingPrices, valuation.MissingPrices...)
	result.MissingRates = append(result.MissingRates, valuation.MissingRates...)

	terminal := valuation.Total.Home
	if currency == CurrencySource {
		terminal = valuation.Total.Source
	}
	if terminal.IsPositive() {
		flows = append(flows, calc.CashFlow{Date: asOf, Amount: terminal.InexactFloat64()})
	}

	result.CashFlowCount = len(flows)
	result.Rate = calc.SolveXIRR(flows)
	return result, nil
}

// flowAmount converts a transaction's cash amount into the reporting
// currency. The boolean is false when no rate is available.
func (s *PerformanceService) flowAmount(ctx context.Context, portfolio model.Portfolio, t model.Transaction, currency ReportCurrency) (decimal.Decimal, bool, error) {
	amount := t.Amount()
	if currency == CurrencyHome {
		rate, ok := t.ExchangeRate.Get()
		if !ok {
			return decimal.Zero, false, nil
		}
		return precision.Money(amount.Mul(rate)), true, nil
	}

	rate, err := s.valuator.Rate(ctx, t.SourceCurrency(), portfolio.BaseCurrency, t.Date)
	if err != nil {
		return decimal.Zero, false, err
	}
	switch rate.Status {
	case LookupRateLimited:
		return decimal.Zero, false, apperrors.ErrRateLimited
	case LookupUnavailable:
		return decimal.Zero, false, nil
	}
	return precision.Money(amount.Mul(rate.Quote.Value)), true, nil
}

// CalculateTWR returns the time-weighted and Modified Dietz returns over
// (from, to].
//
// Snapshots are ensured for every transaction date in the range first, so
// the result never depends on a stale or partial snapshot set. Sub-periods
// are linked between the valuation at from, each day's snapshots, and the
// valuation at to. The external flow of a day is its end-of-day value minus
// its value before the first transaction.
func (s *PerformanceService) CalculateTWR(ctx context.Context, portfolioID string, from, to time.Time) (TWRResult, error) {
	from, to = model.Day(from), model.Day(to)
	if !from.Before(to) {
		return TWRResult{}, apperrors.ErrInvalidDateRange
	}

	data, err := s.loader.Load(ctx, portfolioID)
	if err != nil {
		return TWRResult{}, err
	}

	result := TWRResult{From: from, To: to, IncompleteDates: []string{}}
	var snapshots []model.TransactionSnapshot
	for _, day := range data.TransactionDates(from.AddDate(0, 0, 1), to) {
		r, err := s.snapshots.ensureForDate(ctx, data, day)
		if err != nil {
			return TWRResult{}, err
		}
		if r.Incomplete {
			result.IncompleteDates = append(result.IncompleteDates, day.Format(model.DateLayout))
			result.MissingPrices = mergeSorted(result.MissingPrices, r.MissingPrices)
			result.MissingRates = mergeSorted(result.MissingRates, r.MissingRates)
			continue
		}
		snapshots = append(snapshots, r.Snapshots...)
	}
	result.SnapshotCount = len(snapshots)

	start, err := s.snapshots.valueAt(ctx, data, from, from)
	if err != nil {
		return TWRResult{}, err
	}
	end, err := s.snapshots.valueAt(ctx, data, to, to)
	if err != nil {
		return TWRResult{}, err
	}
	result.MissingPrices = mergeSorted(result.MissingPrices, mergeSorted(start.MissingPrices, end.MissingPrices))
	result.MissingRates = mergeSorted(result.MissingRates, mergeSorted(start.MissingRates, end.MissingRates))

	if len(result.IncompleteDates) > 0 || !start.Complete() || !end.Complete() {
		return result, nil
	}

	for _, home := range []bool{true, false} {
		startValue, endValue := start.Total.Source.InexactFloat64(), end.Total.Source.InexactFloat64()
		if home {
			startValue, endValue = start.Total.Home.InexactFloat64(), end.Total.Home.InexactFloat64()
		}
		boundaries := calc.BoundariesFromSnapshots(snapshots, home)
		twr := calc.TimeWeightedReturn(startValue, boundaries, endValue)
		dietz := calc.ModifiedDietz(startValue, endValue, dailyFlows(boundaries), from, to)
		if home {
			result.TWRHome, result.ModifiedDietzHome = twr, dietz
			if twr != nil {
				result.AnnualizedTWRHome = calc.Annualize(*twr, from, to)
			}
		} else {
			result.TWRSource, result.ModifiedDietzSource = twr, dietz
		}
	}

	return result, nil
}

// dailyFlows collapses a day's chained boundaries into one flow: the value
// after its last transaction minus the value before its first.
func dailyFlows(boundaries []calc.Boundary) []calc.CashFlow {
	var flows []calc.CashFlow
	for i := 0; i < len(boundaries); {
		j := i
		for j+1 < len(boundaries) && boundaries[j+1].Date.Equal(boundaries[i].Date) {
			j++
		}
		flows = append(flows, calc.CashFlow{
			Date:   boundaries[i].Date,
			Amount: boundaries[j].After - boundaries[i].Before,
		})
		i = j + 1
	}
	return flows
}

// NetWorthSeries values the portfolio at the end of every month or year in
// [from, to], plus to itself. Points whose valuation could not be completed
// are returned with Complete false and their missing keys.
func (s *PerformanceService) NetWorthSeries(ctx context.Context, portfolioID string, from, to time.Time, granularity Granularity) ([]NetWorthPoint, error) {
	from, to = model.Day(from), model.Day(to)
	if to.Before(from) {
		return nil, apperrors.ErrInvalidDateRange
	}
	if granularity == "" {
		granularity = GranularityMonthly
	}
	if granularity != GranularityMonthly && granularity != GranularityAnnual {
		return nil, fmt.Errorf("unsupported granularity %q", granularity)
	}

	data, err := s.loader.Load(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	points := make([]NetWorthPoint, 0)
	for _, date := range seriesDates(from, to, granularity) {
		positions, err := data.PositionsAsOf(date)
		if err != nil {
			return nil, err
		}
		valuation, err := s.valuator.ValuePositions(ctx, data.Portfolio, positions, date)
		if err != nil {
			return nil, err
		}
		if valuation.RateLimited {
			return points, apperrors.ErrRateLimited
		}
		points = append(points, NetWorthPoint{
			Date:  date,
			Value: valuation.Total,
			Display: ValuationText{
				Home:   model.FormatMoney(valuation.Total.Home, data.Portfolio.HomeCurrency),
				Source: model.FormatMoney(valuation.Total.Source, data.Portfolio.BaseCurrency),
			},
			Complete:      valuation.Complete(),
			MissingPrices: valuation.MissingPrices,
			MissingRates:  valuation.MissingRates,
		})
	}
	return points, nil
}

// seriesDates returns the period ends in [from, to] followed by to.
func seriesDates(from, to time.Time, granularity Granularity) []time.Time {
	var dates []time.Time
	var end time.Time
	if granularity == GranularityAnnual {
		end = time.Date(from.Year(), 12, 31, 0, 0, 0, 0, time.UTC)
	} else {
		end = time.Date(from.Year(), from.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	}
	for end.Before(to) {
		dates = append(dates, end)
		if granularity == GranularityAnnual {
			end = time.Date(end.Year()+1, 12, 31, 0, 0, 0, 0, time.UTC)
		} else {
			end = time.Date(end.Year(), end.Month()+2, 0, 0, 0, 0, 0, time.UTC)
		}
	}
	return append(dates, to)
}
