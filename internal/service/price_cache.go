package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/repository"
)

// HistoricalProvider fetches the value of a key in effect on a past date.
//
// Implementations return apperrors.ErrNoData when the upstream confirms the
// data point does not exist and apperrors.ErrRateLimited when throttled.
type HistoricalProvider interface {
	Name() string
	FetchHistorical(ctx context.Context, key model.MarketDataKey, date time.Time) (model.Quote, error)
}

// LiveProvider fetches the latest quote for the current period.
type LiveProvider interface {
	FetchLatest(ctx context.Context, key model.MarketDataKey) (model.Quote, error)
}

// LookupStatus tags the outcome of a cache lookup.
type LookupStatus int

const (
	// LookupOK carries a value.
	LookupOK LookupStatus = iota
	// LookupUnavailable means the data point does not exist upstream.
	LookupUnavailable
	// LookupRateLimited means the upstream refused to answer for now.
	LookupRateLimited
)

func (s LookupStatus) String() string {
	switch s {
	case LookupOK:
		return "ok"
	case LookupUnavailable:
		return "unavailable"
	case LookupRateLimited:
		return "rate_limited"
	default:
		return fmt.Sprintf("LookupStatus(%d)", int(s))
	}
}

// Lookup is the tagged result of PriceCache.GetOrFetch. Quote is only
// meaningful when Status is LookupOK.
type Lookup struct {
	Status LookupStatus
	Quote  model.Quote
	Cached bool
}

// OK reports whether the lookup produced a value.
func (l Lookup) OK() bool { return l.Status == LookupOK }

// LookupRequest is one element of a batch lookup.
type LookupRequest struct {
	Key  model.MarketDataKey
	Date time.Time
}

// PriceCache is the single point through which historical prices and
// exchange rates are read.
//
// Past dates are served from market_data_cache when present and written
// once after a successful fetch. A confirmed upstream gap is stored as a
// terminal unavailable marker. Rate limiting and transport failures are
// never stored, so the next call retries. Today and later bypass storage and
// go to the live provider.
type PriceCache struct {
	repo       *repository.MarketDataRepository
	historical []HistoricalProvider
	live       LiveProvider
	group      singleflight.Group
	now        func() time.Time
	log        zerolog.Logger
}

// NewPriceCache creates a PriceCache.
//
// Parameters:
//   - repo: persistent storage for historical entries
//   - live: provider for the current period, may be nil
//   - log: component logger
//   - historical: upstream chain, tried in order until one answers
func NewPriceCache(
	repo *repository.MarketDataRepository,
	live LiveProvider,
	log zerolog.Logger,
	historical ...HistoricalProvider,
) *PriceCache {
	return &PriceCache{
		repo:       repo,
		historical: historical,
		live:       live,
		now:        time.Now,
		log:        log.With().Str("component", "price_cache").Logger(),
	}
}

// WithClock overrides the clock used to decide what counts as the current
// period. Intended for tests.
func (c *PriceCache) WithClock(now func() time.Time) *PriceCache {
	c.now = now
	return c
}

// IsCurrentPeriod reports whether date is today or later by the cache clock.
// Values for such dates come from live quotes and may still move.
func (c *PriceCache) IsCurrentPeriod(date time.Time) bool {
	return !model.Day(date).Before(model.Day(c.now().UTC()))
}

// GetOrFetch returns the value of key on date.
//
// Concurrent calls for the same key and date share one upstream fetch. The
// shared fetch is detached from any single caller's cancellation; each
// caller stops waiting when its own ctx is done.
//
// The returned error is reserved for storage failures and transient
// upstream errors; unavailable and rate-limited outcomes are reported
// through Lookup.Status.
func (c *PriceCache) GetOrFetch(ctx context.Context, key model.MarketDataKey, date time.Time) (Lookup, error) {
	day := model.Day(date)
	flightKey := key.String() + "@" + day.Format(model.DateLayout)
	shared := context.WithoutCancel(ctx)

	ch := c.group.DoChan(flightKey, func() (any, error) {
		if c.IsCurrentPeriod(day) {
			return c.fetchCurrent(shared, key, day)
		}
		return c.getOrFetchHistorical(shared, key, day)
	})

	select {
	case <-ctx.Done():
		return Lookup{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Lookup{}, res.Err
		}
		return res.Val.(Lookup), nil
	}
}

// GetOrFetchBatch resolves requests in order and stops at the first
// rate-limited lookup, since every later call would be refused as well.
// The boolean reports whether the batch was cut short.
func (c *PriceCache) GetOrFetchBatch(ctx context.Context, requests []LookupRequest) (map[LookupRequest]Lookup, bool, error) {
	results := make(map[LookupRequest]Lookup, len(requests))
	for _, req := range requests {
		req.Date = model.Day(req.Date)
		if _, done := results[req]; done {
			continue
		}
		l, err := c.GetOrFetch(ctx, req.Key, req.Date)
		if err != nil {
			return results, false, err
		}
		results[req] = l
		if l.Status == LookupRateLimited {
			return results, true, nil
		}
	}
	return results, false, nil
}

func (c *PriceCache) getOrFetchHistorical(ctx context.Context, key model.MarketDataKey, day time.Time) (Lookup, error) {
	entry, found, err := c.repo.Get(ctx, key.Kind, key.CacheKey(), day)
	if err != nil {
		return Lookup{}, err
	}
	if found {
		if entry.IsUnavailable {
			return Lookup{Status: LookupUnavailable, Cached: true}, nil
		}
		return Lookup{
			Status: LookupOK,
			Quote:  model.Quote{Value: entry.Value, ActualDate: entry.ActualDate, Source: entry.Source},
			Cached: true,
		}, nil
	}

	quote, source, err := c.fetchHistorical(ctx, key, day)
	switch {
	case err == nil:
		c.store(ctx, model.MarketDataEntry{
			Kind:       key.Kind,
			Key:        key.CacheKey(),
			Date:       day,
			Value:      quote.Value,
			ActualDate: quote.ActualDate,
			Source:     quote.Source,
			FetchedAt:  c.now().UTC(),
		})
		return Lookup{Status: LookupOK, Quote: quote}, nil

	case errors.Is(err, apperrors.ErrRateLimited):
		c.log.Warn().Str("key", key.String()).Str("date", day.Format(model.DateLayout)).Msg("upstream rate limited")
		return Lookup{Status: LookupRateLimited}, nil

	case errors.Is(err, apperrors.ErrNoData):
		c.log.Info().Str("key", key.String()).Str("date", day.Format(model.DateLayout)).Msg("marking data point unavailable")
		c.store(ctx, model.MarketDataEntry{
			Kind:          key.Kind,
			Key:           key.CacheKey(),
			Date:          day,
			Source:        source,
			FetchedAt:     c.now().UTC(),
			IsUnavailable: true,
		})
		return Lookup{Status: LookupUnavailable}, nil

	default:
		return Lookup{}, fmt.Errorf("failed to fetch %s on %s: %w", key, day.Format(model.DateLayout), err)
	}
}

// fetchHistorical walks the provider chain. A provider without the data
// passes to the next; rate limiting stops the walk. The data point is only
// reported missing when every provider confirmed the gap.
func (c *PriceCache) fetchHistorical(ctx context.Context, key model.MarketDataKey, day time.Time) (model.Quote, string, error) {
	var transient error
	source := ""
	for _, p := range c.historical {
		quote, err := p.FetchHistorical(ctx, key, day)
		if err == nil {
			if quote.Source == "" {
				quote.Source = p.Name()
			}
			return quote, p.Name(), nil
		}
		if errors.Is(err, apperrors.ErrRateLimited) {
			return model.Quote{}, p.Name(), err
		}
		if !errors.Is(err, apperrors.ErrNoData) {
			c.log.Debug().Err(err).Str("provider", p.Name()).Str("key", key.String()).Msg("provider failed")
			transient = err
		}
		source = p.Name()
	}
	if transient != nil {
		return model.Quote{}, source, transient
	}
	return model.Quote{}, source, fmt.Errorf("%w: %s on %s", apperrors.ErrNoData, key, day.Format(model.DateLayout))
}

func (c *PriceCache) fetchCurrent(ctx context.Context, key model.MarketDataKey, day time.Time) (Lookup, error) {
	var quote model.Quote
	var err error
	if c.live != nil {
		quote, err = c.live.FetchLatest(ctx, key)
	} else {
		quote, _, err = c.fetchHistorical(ctx, key, day)
	}

	switch {
	case err == nil:
		return Lookup{Status: LookupOK, Quote: quote}, nil
	case errors.Is(err, apperrors.ErrRateLimited):
		return Lookup{Status: LookupRateLimited}, nil
	case errors.Is(err, apperrors.ErrNoData):
		return Lookup{Status: LookupUnavailable}, nil
	default:
		return Lookup{}, fmt.Errorf("failed to fetch latest %s: %w", key, err)
	}
}

// store writes an entry. Failures are logged and do not affect the lookup.
func (c *PriceCache) store(ctx context.Context, e model.MarketDataEntry) {
	if err := c.repo.Insert(ctx, e); err != nil {
		c.log.Error().Err(err).Str("key", e.Key).Msg("failed to store market data")
	}
}
