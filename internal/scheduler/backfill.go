package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/service"
)

// PortfolioLister lists the portfolios to maintain.
type PortfolioLister interface {
	GetPortfolioIDs(ctx context.Context) ([]string, error)
}

// Backfiller brings one portfolio's snapshots up to date.
type Backfiller interface {
	BackfillPortfolio(ctx context.Context, portfolioID string) (service.BackfillResult, error)
}

// BackfillJob ensures snapshots for every transaction date of every
// portfolio, so return queries find them already stored.
//
// A rate-limited upstream ends the run; the next tick resumes where it
// stopped because stored days are reused. Other per-portfolio failures are
// logged and the run continues.
type BackfillJob struct {
	portfolios PortfolioLister
	snapshots  Backfiller
	timeout    time.Duration
	log        zerolog.Logger
}

// NewBackfillJob creates a BackfillJob. timeout bounds one whole run.
func NewBackfillJob(portfolios PortfolioLister, snapshots Backfiller, timeout time.Duration, log zerolog.Logger) *BackfillJob {
	return &BackfillJob{
		portfolios: portfolios,
		snapshots:  snapshots,
		timeout:    timeout,
		log:        log.With().Str("job", "snapshot_backfill").Logger(),
	}
}

// Name identifies the job in scheduler logs.
func (j *BackfillJob) Name() string { return "snapshot_backfill" }

// Run executes one backfill pass.
func (j *BackfillJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.run(ctx)
}

func (j *BackfillJob) run(ctx context.Context) error {
	ids, err := j.portfolios.GetPortfolioIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list portfolios: %w", err)
	}

	var total service.BackfillResult
	failed := 0
	for _, id := range ids {
		result, err := j.snapshots.BackfillPortfolio(ctx, id)
		total.Dates += result.Dates
		total.Written += result.Written
		total.Reused += result.Reused
		total.Incomplete += result.Incomplete
		total.Provisional += result.Provisional

		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrRateLimited), errors.Is(err, context.DeadlineExceeded):
			j.log.Warn().Err(err).Str("portfolio_id", id).Msg("backfill interrupted")
			return nil
		default:
			failed++
			j.log.Error().Err(err).Str("portfolio_id", id).Msg("backfill failed")
		}
	}

	j.log.Info().
		Int("portfolios", len(ids)).
		Int("dates", total.Dates).
		Int("written", total.Written).
		Int("reused", total.Reused).
		Int("incomplete", total.Incomplete).
		Int("provisional", total.Provisional).
		Msg("backfill completed")

	if failed > 0 {
		return fmt.Errorf("backfill failed for %d of %d portfolios", failed, len(ids))
	}
	return nil
}
