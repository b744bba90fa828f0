package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
)

// FakeProvider is an in-memory market data upstream for testing. It
// answers historical lookups from a table of (key, date) values and live
// lookups from a table of latest values. Unknown points return
// apperrors.ErrNoData.
//
// Example usage:
//
//	p := testutil.NewFakeProvider().
//	    WithValue(model.PriceKey("AAPL", model.MarketUS), day, "190.5")
//	// p.QueryCount() reports how many upstream calls were made
type FakeProvider struct {
	mu        sync.Mutex
	values    map[string]string
	latest    map[string]string
	errors    map[string]error
	err       error
	calls     int
	liveCalls int
}

// NewFakeProvider creates an empty FakeProvider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		values: make(map[string]string),
		latest: make(map[string]string),
		errors: make(map[string]error),
	}
}

func pointKey(key model.MarketDataKey, date time.Time) string {
	return key.String() + "@" + model.Day(date).Format(model.DateLayout)
}

// WithValue answers key on date with value.
func (p *FakeProvider) WithValue(key model.MarketDataKey, date time.Time, value string) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[pointKey(key, date)] = value
	return p
}

// WithLatest answers live lookups of key with value.
func (p *FakeProvider) WithLatest(key model.MarketDataKey, value string) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest[key.String()] = value
	return p
}

// WithKeyError fails every lookup of key with err.
func (p *FakeProvider) WithKeyError(key model.MarketDataKey, err error) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors[key.String()] = err
	return p
}

// WithError fails every lookup with err. A nil err restores normal answers.
func (p *FakeProvider) WithError(err error) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

// QueryCount returns the number of historical lookups made.
func (p *FakeProvider) QueryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// LiveQueryCount returns the number of live lookups made.
func (p *FakeProvider) LiveQueryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liveCalls
}

// Name identifies the fake in cache provenance.
func (p *FakeProvider) Name() string { return "fake" }

// FetchHistorical implements the historical provider contract.
func (p *FakeProvider) FetchHistorical(_ context.Context, key model.MarketDataKey, date time.Time) (model.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if err := p.failure(key); err != nil {
		return model.Quote{}, err
	}
	v, ok := p.values[pointKey(key, date)]
	if !ok {
		return model.Quote{}, apperrors.ErrNoData
	}
	return model.Quote{Value: Dec(v), ActualDate: model.Day(date), Source: p.Name()}, nil
}

// FetchLatest implements the live provider contract.
func (p *FakeProvider) FetchLatest(_ context.Context, key model.MarketDataKey) (model.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.liveCalls++

	if err := p.failure(key); err != nil {
		return model.Quote{}, err
	}
	v, ok := p.latest[key.String()]
	if !ok {
		return model.Quote{}, apperrors.ErrNoData
	}
	return model.Quote{Value: Dec(v), ActualDate: model.Day(Today), Source: p.Name()}, nil
}

func (p *FakeProvider) failure(key model.MarketDataKey) error {
	if p.err != nil {
		return p.err
	}
	return p.errors[key.String()]
}
