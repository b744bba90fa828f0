package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/calc"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/repository"
)

// SnapshotResult describes the outcome of EnsureSnapshotsForDate.
type SnapshotResult struct {
	Date          time.Time                   `json:"date"`
	Snapshots     []model.TransactionSnapshot `json:"snapshots"`
	Reused        bool                        `json:"reused"`
	Incomplete    bool                        `json:"incomplete"`
	Provisional   bool                        `json:"provisional"`
	MissingPrices []string                    `json:"missingPrices,omitempty"`
	MissingRates  []string                    `json:"missingRates,omitempty"`
}

// BackfillResult summarizes a BackfillPortfolio run.
type BackfillResult struct {
	Dates       int `json:"dates"`
	Written     int `json:"written"`
	Reused      int `json:"reused"`
	Incomplete  int `json:"incomplete"`
	Provisional int `json:"provisional"`
}

// SnapshotService maintains the per-transaction valuation snapshots that
// time-weighted returns are computed from.
type SnapshotService struct {
	loader       *DataLoaderService
	valuator     *Valuator
	snapshotRepo *repository.SnapshotRepository
	now          func() time.Time
	log          zerolog.Logger
}

// NewSnapshotService creates a new SnapshotService with the provided dependencies.
func NewSnapshotService(
	loader *DataLoaderService,
	valuator *Valuator,
	snapshotRepo *repository.SnapshotRepository,
	log zerolog.Logger,
) *SnapshotService {
	return &SnapshotService{
		loader:       loader,
		valuator:     valuator,
		snapshotRepo: snapshotRepo,
		now:          valuator.now,
		log:          log.With().Str("component", "snapshot_service").Logger(),
	}
}

// EnsureSnapshotsForDate makes the stored snapshots of one portfolio day
// match its transactions.
//
// When the stored set already covers exactly the day's transactions and is
// chained, it is returned untouched and no price is looked up. Otherwise
// the day is valued before its first and after its last transaction and
// the chained set replaces the stored one atomically.
//
// A day that is not yet over is valued from live quotes. Its snapshots are
// returned as Provisional and never stored or reused.
//
// Missing prices or rates produce an Incomplete result and nothing is
// written. Rate limiting aborts with apperrors.ErrRateLimited.
func (s *SnapshotService) EnsureSnapshotsForDate(ctx context.Context, portfolioID string, date time.Time) (SnapshotResult, error) {
	data, err := s.loader.Load(ctx, portfolioID)
	if err != nil {
		return SnapshotResult{}, err
	}
	return s.ensureForDate(ctx, data, model.Day(date))
}

func (s *SnapshotService) ensureForDate(ctx context.Context, data *PortfolioData, day time.Time) (SnapshotResult, error) {
	portfolioID := data.Portfolio.ID
	result := SnapshotResult{Date: day}

	existing, err := s.snapshotRepo.GetForDate(ctx, portfolioID, day)
	if err != nil {
		return result, err
	}

	dayTxs := calc.OrderSameDay(data.TransactionsOn(day))
	if len(dayTxs) == 0 {
		if len(existing) > 0 {
			if err := s.snapshotRepo.ReplaceForDate(ctx, portfolioID, day, nil); err != nil {
				return result, err
			}
		}
		return result, nil
	}

	open := s.valuator.IsCurrentPeriod(day)
	if !open && coversExactly(existing, dayTxs) && calc.IsChained(existing) {
		result.Snapshots = existing
		result.Reused = true
		return result, nil
	}

	before, err := s.valueAt(ctx, data, day.AddDate(0, 0, -1), day)
	if err != nil {
		return result, err
	}
	after, err := s.valueAt(ctx, data, day, day)
	if err != nil {
		return result, err
	}

	if !before.Complete() || !after.Complete() {
		result.Incomplete = true
		result.MissingPrices = mergeSorted(before.MissingPrices, after.MissingPrices)
		result.MissingRates = mergeSorted(before.MissingRates, after.MissingRates)
		s.log.Warn().
			Str("portfolio_id", portfolioID).
			Str("date", day.Format(model.DateLayout)).
			Strs("missing_prices", result.MissingPrices).
			Strs("missing_rates", result.MissingRates).
			Msg("snapshot incomplete, not stored")
		return result, nil
	}

	snapshots := calc.ChainSameDay(dayTxs, before.Total, after.Total)
	createdAt := s.now().UTC()
	for i := range snapshots {
		snapshots[i].ID = uuid.New().String()
		snapshots[i].CreatedAt = createdAt.Add(time.Duration(i) * time.Microsecond)
	}

	if open {
		result.Snapshots = snapshots
		result.Provisional = true
		return result, nil
	}

	if err := s.snapshotRepo.ReplaceForDate(ctx, portfolioID, day, snapshots); err != nil {
		return result, err
	}

	s.log.Debug().
		Str("portfolio_id", portfolioID).
		Str("date", day.Format(model.DateLayout)).
		Int("count", len(snapshots)).
		Msg("snapshots written")

	result.Snapshots = snapshots
	return result, nil
}

// valueAt values the positions held after positionsAsOf at prices of priceDate.
func (s *SnapshotService) valueAt(ctx context.Context, data *PortfolioData, positionsAsOf, priceDate time.Time) (PortfolioValuation, error) {
	positions, err := data.PositionsAsOf(positionsAsOf)
	if err != nil {
		return PortfolioValuation{}, err
	}
	valuation, err := s.valuator.ValuePositions(ctx, data.Portfolio, positions, priceDate)
	if err != nil {
		return PortfolioValuation{}, err
	}
	if valuation.RateLimited {
		return PortfolioValuation{}, fmt.Errorf("valuing %s on %s: %w",
			data.Portfolio.ID, priceDate.Format(model.DateLayout), apperrors.ErrRateLimited)
	}
	return valuation, nil
}

// BackfillPortfolio ensures snapshots for every transaction date of the
// portfolio, oldest first. It stops at the first rate-limited day and
// returns the progress made so far with the error.
func (s *SnapshotService) BackfillPortfolio(ctx context.Context, portfolioID string) (BackfillResult, error) {
	data, err := s.loader.Load(ctx, portfolioID)
	if err != nil {
		return BackfillResult{}, err
	}
	return s.backfill(ctx, data, time.Time{}, time.Time{})
}

func (s *SnapshotService) backfill(ctx context.Context, data *PortfolioData, from, to time.Time) (BackfillResult, error) {
	var result BackfillResult
	for _, day := range data.TransactionDates(from, to) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		r, err := s.ensureForDate(ctx, data, day)
		if err != nil {
			if errors.Is(err, apperrors.ErrRateLimited) {
				s.log.Warn().Str("portfolio_id", data.Portfolio.ID).Str("date", day.Format(model.DateLayout)).Msg("backfill stopped by rate limit")
			}
			return result, err
		}
		result.Dates++
		switch {
		case r.Reused:
			result.Reused++
		case r.Incomplete:
			result.Incomplete++
		case r.Provisional:
			result.Provisional++
		default:
			result.Written++
		}
	}
	return result, nil
}

// InvalidateFrom drops the portfolio's snapshots dated on or after date.
// Called when a transaction dated on date is created or deleted.
func (s *SnapshotService) InvalidateFrom(ctx context.Context, portfolioID string, date time.Time) error {
	return s.snapshotRepo.DeleteFrom(ctx, portfolioID, model.Day(date))
}

func coversExactly(snapshots []model.TransactionSnapshot, txs []model.Transaction) bool {
	if len(snapshots) != len(txs) {
		return false
	}
	for i := range txs {
		if snapshots[i].TransactionID != txs[i].ID {
			return false
		}
	}
	return true
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}
